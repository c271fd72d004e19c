package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/irdl/internal/opdef"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	Ops []string // kinds to describe; empty means all
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe <dialect-dir>...",
		Short: "Print operation schemas",
		Long: `Print the resolved schema of every operation kind in the given
dialects: slots with cardinality and constraint, attributes and properties
with defaults, options, traits, and the assembly format.

Examples:
  irdl describe ./dialects/mesh
  irdl describe ./dialects/mesh --op mesh.all_gather --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Ops, "op", nil, "operation kind to describe (repeatable)")

	return cmd
}

func runDescribe(opts *DescribeOptions, dirs []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, errs := LoadDialects(dirs, LoadModeFailFast, formatter.Logger())
	if len(errs) > 0 {
		return formatter.fail(exitCodeFor(errs), errs[0].Code, errs[0].Error())
	}

	names := opts.Ops
	if len(names) == 0 {
		names = loaded.Registry.Names()
	}

	descs := make([]opdef.Description, 0, len(names))
	for _, name := range names {
		s, ok := loaded.Registry.Lookup(name)
		if !ok {
			return formatter.fail(ExitCommandError, ErrCodeUnknownKind, fmt.Sprintf("unknown operation %s", name))
		}
		descs = append(descs, s.Describe())
	}

	if formatter.JSON() {
		return formatter.Success(descs)
	}
	for i, d := range descs {
		if i > 0 {
			fmt.Fprintln(formatter.Writer)
		}
		writeDescription(formatter.Writer, d)
	}
	return nil
}

// writeDescription renders a schema description as indented text.
func writeDescription(w io.Writer, d opdef.Description) {
	fmt.Fprintln(w, d.Name)

	slots := func(title string, list []opdef.SlotDescription) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(w, "  %s:\n", title)
		for _, s := range list {
			line := fmt.Sprintf("    %s: %s", s.Name, s.Cardinality)
			if s.Constraint != "" {
				line += " " + s.Constraint
			}
			if s.SingleBlock {
				line += " (single block)"
			}
			fmt.Fprintln(w, line)
		}
	}
	attrs := func(title string, list []opdef.AttrDescription) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(w, "  %s:\n", title)
		for _, a := range list {
			line := fmt.Sprintf("    %s: %s", a.Name, a.Constraint)
			if a.Default != "" {
				line += " = " + a.Default
			}
			if a.Optional {
				line += " (optional)"
			}
			if a.Accessor != "" {
				line += " [accessor " + a.Accessor + "]"
			}
			fmt.Fprintln(w, line)
		}
	}
	list := func(title string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(w, "  %s: %s\n", title, strings.Join(items, ", "))
		}
	}

	slots("operands", d.Operands)
	slots("results", d.Results)
	slots("regions", d.Regions)
	slots("successors", d.Successors)
	attrs("attributes", d.Attributes)
	attrs("properties", d.Properties)
	list("options", d.Options)
	list("traits", d.Traits)
	list("methods", d.Methods)
	if d.AssemblyFormat != "" {
		fmt.Fprintf(w, "  format: %s\n", d.AssemblyFormat)
	}
	if d.CustomVerify {
		fmt.Fprintln(w, "  custom verifier")
	}
}
