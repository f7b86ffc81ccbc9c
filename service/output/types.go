package output

import (
	"github.com/thirukguru/waf-perimeter/model"
	"github.com/thirukguru/waf-perimeter/shared/spinner"
	waftable "github.com/thirukguru/waf-perimeter/shared/waf_table"
)

// Format represents the output format type
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// Renderer defines the interface for drawing scan results.
type Renderer interface {
	DrawScanSummary(report *model.ScanReport)
	OutputScanJSON(report *model.ScanReport) error
	StopSpinner()
}

type realRenderer struct{}

func (r *realRenderer) DrawScanSummary(report *model.ScanReport) {
	waftable.DrawScanSummary(report)
}

func (r *realRenderer) OutputScanJSON(report *model.ScanReport) error {
	return printJSON(report)
}

func (r *realRenderer) StopSpinner() {
	spinner.StopSpinner()
}

// service is the internal implementation
type service struct {
	format   Format
	renderer Renderer
}

// Service defines the interface for output operations
type Service interface {
	RenderScan(report *model.ScanReport) error
}
