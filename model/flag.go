package model

// Flags represents the command line flags for the scan path.
type Flags struct {
	Profiles   []string
	Regions    []string
	AllRegions bool
	Version    bool
	Output     string
	OutputDir  string
	OutputFile string
	NoParallel bool
	Debug      bool
	Store      bool
	DBPath     string
	ConfigPath string
}
