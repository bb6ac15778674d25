package ears

// FileResult pairs a result with the file it came from.
type FileResult struct {
	Path string `json:"path"`
	Result
}

// Report aggregates per-file results for a multi-document run.
type Report struct {
	Files   []FileResult `json:"files"`
	Total   int          `json:"total"`
	Matched int          `json:"matched"`
	Rate    float64      `json:"rate"`
}

// Summarize combines per-file results into one report. The aggregate rate
// weighs every requirement equally regardless of file.
func Summarize(files []FileResult) Report {
	rep := Report{Files: files}
	for _, f := range files {
		rep.Total += f.Total
		rep.Matched += f.Matched
	}
	if rep.Total > 0 {
		rep.Rate = float64(rep.Matched) / float64(rep.Total)
	}
	return rep
}
