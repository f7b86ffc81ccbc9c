// Package main is the entry point for the waf-perimeter application.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/thirukguru/waf-perimeter/model"
	awsconfig "github.com/thirukguru/waf-perimeter/service/aws_config"
	"github.com/thirukguru/waf-perimeter/service/flag"
	"github.com/thirukguru/waf-perimeter/service/session"
	awssts "github.com/thirukguru/waf-perimeter/service/sts"
	"github.com/thirukguru/waf-perimeter/shared/banner"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "check":
			return runCheckCommand(os.Args[2:])
		case "doctor":
			return runDoctorCommand(os.Args[2:])
		case "analyze":
			return runAnalyzeCommand(os.Args[2:])
		case "db", "history":
			return runStorageCommand(os.Args[1], os.Args[2:])
		}
	}

	flagService := flag.NewService()
	flags, err := flagService.GetParsedFlags()
	if err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	versionInfo := model.VersionInfo{Version: version, Commit: commit, Date: date}

	if flags.Version {
		fmt.Printf("waf-perimeter %s (commit %s, built %s)\n", versionInfo.Version, versionInfo.Commit, versionInfo.Date)
		return nil
	}

	if flags.Output != "json" {
		banner.DrawBannerTitle()
	}

	// Explicit scan parameters skip the interactive menu entirely.
	if len(flags.Profiles) > 0 || len(flags.Regions) > 0 || flags.AllRegions {
		return runScan(flags, versionInfo)
	}

	return runMenu(flags, versionInfo)
}

// newSessionService wires the session validator against real STS clients. A
// profile whose cached credentials cannot even be retrieved shows up as an
// invalid session, which is exactly when the login offer should appear.
func newSessionService() session.Service {
	return session.NewService(func(ctx context.Context, profile string) (awssts.Service, error) {
		cfg, err := awsconfig.NewService().GetAWSCfg(ctx, "", profile)
		if err != nil {
			return nil, err
		}
		return awssts.NewService(cfg), nil
	})
}
