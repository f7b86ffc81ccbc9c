package analyze

import "io"

// Options selects which analyses run against a saved scan report. When no
// option is set, every read-only analysis runs.
type Options struct {
	List      bool
	Stats     bool
	Resources bool
	Search    string
	CSVPath   string
}

// Service analyzes a previously written scan report file.
type Service interface {
	Run(reportPath string, opts Options) error
}

type service struct {
	out io.Writer
}
