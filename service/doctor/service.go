// Package doctor runs local environment diagnostics before any AWS call is
// attempted: the aws CLI must be on PATH for the browser SSO login flow, and
// the shared AWS config must exist for profile resolution.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/thirukguru/waf-perimeter/service/scanconfig"
)

// Overridable for tests.
var (
	lookPath = exec.LookPath
	statFile = os.Stat
)

// Result is the outcome of one diagnostics pass. Mandatory failures make the
// whole run unhealthy; the scan config is optional and only warned about.
type Result struct {
	AWSCLIPresent      bool
	AWSCLIPath         string
	SharedConfigFound  bool
	SharedConfigPath   string
	ScanConfigFound    bool
	ScanConfigProfiles int
	ScanConfigRegions  int
	ScanConfigError    string
}

// Healthy reports whether all mandatory dependencies are present.
func (r Result) Healthy() bool {
	return r.AWSCLIPresent && r.SharedConfigFound
}

// Service is the interface for environment diagnostics.
type Service interface {
	Run(scanConfigPath string) Result
	Render(r Result)
}

type service struct {
	scanCfg scanconfig.Service
}

// NewService creates a new doctor service.
func NewService() Service {
	return &service{scanCfg: scanconfig.NewService()}
}

func (s *service) Run(scanConfigPath string) Result {
	var r Result

	if path, err := lookPath("aws"); err == nil {
		r.AWSCLIPresent = true
		r.AWSCLIPath = path
	}

	r.SharedConfigPath = sharedConfigPath()
	if info, err := statFile(r.SharedConfigPath); err == nil && !info.IsDir() {
		r.SharedConfigFound = true
	}

	if s.scanCfg.Exists(scanConfigPath) {
		cfg, err := s.scanCfg.Load(scanConfigPath)
		if err != nil {
			r.ScanConfigError = err.Error()
		} else {
			r.ScanConfigFound = true
			r.ScanConfigProfiles = cfg.ProfileCount()
			r.ScanConfigRegions = cfg.RegionCount()
		}
	}

	return r
}

func (s *service) Render(r Result) {
	fmt.Println(text.FgCyan.Sprint("Environment checks:"))

	if r.AWSCLIPresent {
		fmt.Printf("  %s AWS CLI found (%s)\n", text.FgGreen.Sprint("✓"), r.AWSCLIPath)
	} else {
		fmt.Printf("  %s AWS CLI not found on PATH\n", text.FgRed.Sprint("✗"))
		fmt.Printf("    Install it from https://docs.aws.amazon.com/cli/latest/userguide/getting-started-install.html\n")
	}

	if r.SharedConfigFound {
		fmt.Printf("  %s AWS shared config present (%s)\n", text.FgGreen.Sprint("✓"), r.SharedConfigPath)
	} else {
		fmt.Printf("  %s AWS shared config missing (%s)\n", text.FgRed.Sprint("✗"), r.SharedConfigPath)
		fmt.Printf("    Run 'aws configure sso' to set up a profile\n")
	}

	switch {
	case r.ScanConfigError != "":
		fmt.Printf("  %s scan config unreadable: %s\n", text.FgYellow.Sprint("⚠"), r.ScanConfigError)
	case r.ScanConfigFound:
		fmt.Printf("  %s scan config present (%d profiles, %d regions)\n",
			text.FgGreen.Sprint("✓"), r.ScanConfigProfiles, r.ScanConfigRegions)
	default:
		fmt.Printf("  %s scan config not found (optional, needed for config-driven scans)\n",
			text.FgYellow.Sprint("⚠"))
	}

	fmt.Println()
}

// WriteStarterConfig writes a commented example scan config for the operator
// to fill in. Refuses to overwrite an existing file.
func WriteStarterConfig(path string) error {
	if path == "" {
		path = scanconfig.DefaultPath
	}
	if _, err := statFile(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	starter := strings.TrimSpace(`
{
  "profiles": ["my-prod-admin", "my-staging-admin"],
  "regions": {"common": ["us-east-1", "eu-west-1"]},
  "output_dir": "."
}
`) + "\n"

	return os.WriteFile(path, []byte(starter), 0o644)
}

func sharedConfigPath() string {
	if env := os.Getenv("AWS_CONFIG_FILE"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".aws", "config")
	}
	return filepath.Join(home, ".aws", "config")
}
