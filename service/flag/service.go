package flag

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/thirukguru/waf-perimeter/model"
)

// NewService creates a new flag service.
func NewService() Service {
	return &service{}
}

// GetParsedFlags parses and returns the command-line flags.
func (s *service) GetParsedFlags() (model.Flags, error) {
	profiles := pflag.StringP("profiles", "p", "", "Comma or space separated AWS profiles to scan")
	regions := pflag.StringP("regions", "r", "", "Comma or space separated AWS regions for the REGIONAL scope")
	allRegions := pflag.Bool("all-regions", false, "Scan all enabled AWS regions in the REGIONAL scope")
	version := pflag.BoolP("version", "v", false, "Show version information")
	output := pflag.StringP("output", "o", "table", "Output format (table or json)")
	outputDir := pflag.String("output-dir", ".", "Directory for the waf_config_<timestamp>.json report")
	outputFile := pflag.StringP("output-file", "f", "", "Explicit report file path (overrides --output-dir)")
	noParallel := pflag.Bool("no-parallel", false, "Scan profiles sequentially instead of in parallel")
	debug := pflag.Bool("debug", false, "Enable verbose debug logging")
	store := pflag.Bool("store", false, "Persist the scan summary in the local SQLite history database")
	dbPath := pflag.String("db-path", "", "Custom SQLite database path (default ~/.waf-perimeter/history.db)")
	configPath := pflag.String("config-path", "waf_scan_config.json", "Path to the scan config file")

	pflag.Parse()

	flags := model.Flags{
		Profiles:   SplitList(*profiles),
		Regions:    SplitList(*regions),
		AllRegions: *allRegions,
		Version:    *version,
		Output:     *output,
		OutputDir:  *outputDir,
		OutputFile: *outputFile,
		NoParallel: *noParallel,
		Debug:      *debug,
		Store:      *store,
		DBPath:     *dbPath,
		ConfigPath: *configPath,
	}

	return flags, nil
}

// SplitList splits a comma or whitespace separated list into trimmed,
// non-empty entries.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
