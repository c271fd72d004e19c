package ir

// Version constants for the IR and the tool.
const (
	// IRVersion is the version of the attribute canonical encoding.
	// Fingerprints computed under different versions are not comparable.
	IRVersion = "1"

	// ToolVersion is the irdl tool version.
	ToolVersion = "0.1.0"
)
