package scanner

import (
	"context"

	"github.com/thirukguru/waf-perimeter/model"
)

// Options selects what one scan run covers. Inputs collected interactively
// are carried here as structured fields, never as command strings.
type Options struct {
	Profiles   []string
	Regions    []string
	NoParallel bool
	Debug      bool
	OutputDir  string
	OutputFile string
}

// Service is the interface for the scan engine.
type Service interface {
	Scan(ctx context.Context, opts Options) (*model.ScanReport, string, error)
}

// accountScanner collects the report for one profile. Swapped out in tests.
type accountScanner func(ctx context.Context, profile string, regions []string, debug bool) model.AccountReport

type service struct {
	version     string
	scanAccount accountScanner
}
