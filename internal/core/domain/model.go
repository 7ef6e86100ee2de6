package domain

// Result is the encoded output of one pipeline run.
type Result struct {
	PNG    []byte
	Width  int
	Height int
}

// FileResult records the outcome of a single file in a batch run.
type FileResult struct {
	Path       string
	OutputPath string
	Err        error
}
