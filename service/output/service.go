// Package output provides a service for rendering results to the console.
package output

import (
	"encoding/json"
	"fmt"

	"github.com/thirukguru/waf-perimeter/model"
)

// NewService creates a new output service with the specified format
func NewService(format string) Service {
	f := FormatTable
	if format == "json" {
		f = FormatJSON
	}

	return &service{
		format:   f,
		renderer: &realRenderer{},
	}
}

func (s *service) RenderScan(report *model.ScanReport) error {
	s.renderer.StopSpinner()

	if s.format == FormatJSON {
		return s.renderer.OutputScanJSON(report)
	}
	s.renderer.DrawScanSummary(report)
	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))

	return nil
}
