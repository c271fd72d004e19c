package store

import "github.com/roach88/irdl/internal/module"

// ResultsFromReport converts module run outcomes to result rows.
func ResultsFromReport(rep *module.Report) []Result {
	results := make([]Result, len(rep.Outcomes))
	for i, o := range rep.Outcomes {
		r := Result{
			Index:       o.Index,
			OpName:      o.Kind,
			Form:        o.Form,
			Fingerprint: o.Fingerprint,
		}
		if !o.OK() {
			r.Stage = string(o.Stage)
			r.Code = o.Code()
			r.Message = o.Err.Error()
		}
		results[i] = r
	}
	return results
}
