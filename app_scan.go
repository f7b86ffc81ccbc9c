package main

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/thirukguru/waf-perimeter/model"
	awsconfig "github.com/thirukguru/waf-perimeter/service/aws_config"
	"github.com/thirukguru/waf-perimeter/service/doctor"
	"github.com/thirukguru/waf-perimeter/service/output"
	"github.com/thirukguru/waf-perimeter/service/scanconfig"
	"github.com/thirukguru/waf-perimeter/service/scanner"
	"github.com/thirukguru/waf-perimeter/service/storage"
	"github.com/thirukguru/waf-perimeter/shared/spinner"
)

// runScan is the non-interactive scan path: environment checks, session
// validation, region resolution, then the scan engine.
func runScan(flags model.Flags, versionInfo model.VersionInfo) error {
	runCtx, opts, err := prepareScan(flags, true)
	if err != nil {
		return err
	}

	reportPath, err := dispatchScan(flags, versionInfo, runCtx, opts)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", text.FgGreen.Sprintf("✓ Report written to %s", reportPath))
	return nil
}

// prepareScan runs the pre-scan checks and assembles the scan options. The
// returned RunContext carries every fact the later steps need; nothing
// downstream re-reads ambient process state.
func prepareScan(flags model.Flags, renderChecks bool) (model.RunContext, scanner.Options, error) {
	runCtx := model.RunContext{ConfigPath: flags.ConfigPath}

	doctorService := doctor.NewService()
	result := doctorService.Run(flags.ConfigPath)
	if renderChecks {
		doctorService.Render(result)
	}
	if !result.Healthy() {
		return runCtx, scanner.Options{}, fmt.Errorf("environment checks failed, run 'waf-perimeter doctor' for details")
	}

	opts := scanner.Options{
		Profiles:   flags.Profiles,
		Regions:    flags.Regions,
		NoParallel: flags.NoParallel,
		Debug:      flags.Debug,
		OutputDir:  flags.OutputDir,
		OutputFile: flags.OutputFile,
	}

	cfgService := scanconfig.NewService()
	if cfgService.Exists(flags.ConfigPath) {
		cfg, err := cfgService.Load(flags.ConfigPath)
		if err != nil {
			return runCtx, opts, fmt.Errorf("scan config %s: %w", flags.ConfigPath, err)
		}
		runCtx.ConfigPresent = true
		runCtx.ProfileCount = cfg.ProfileCount()
		runCtx.RegionCount = cfg.RegionCount()

		if len(opts.Profiles) == 0 {
			opts.Profiles = cfg.Profiles
		}
		if len(opts.Regions) == 0 {
			opts.Regions = cfg.Regions.Common
		}
		if opts.OutputDir == "." && cfg.OutputDir != "" {
			opts.OutputDir = cfg.OutputDir
		}
	}

	if len(opts.Profiles) == 0 {
		return runCtx, opts, fmt.Errorf("no profiles to scan: pass --profiles or create %s", scanconfig.DefaultPath)
	}

	sessionService := newSessionService()
	status := sessionService.EnsureLoggedIn(context.Background(), opts.Profiles[0])
	runCtx.Profile = status.Profile
	runCtx.AccountID = status.AccountID
	runCtx.LoggedIn = status.LoggedIn
	if !status.LoggedIn {
		return runCtx, opts, fmt.Errorf("no valid session for profile %s: %s", status.Profile, status.Err)
	}
	fmt.Printf("  %s logged in as account %s (profile %s)\n\n", text.FgGreen.Sprint("✓"), status.AccountID, status.Profile)

	if flags.AllRegions {
		regions, err := resolveAllRegions(opts.Profiles[0])
		if err != nil {
			return runCtx, opts, err
		}
		opts.Regions = regions
	}
	opts.Regions = dedupeRegions(opts.Regions)

	runCtx.ScanReady = true
	return runCtx, opts, nil
}

// dispatchScan runs the scan engine and renders the result. The spinner is
// only shown for table output; JSON mode keeps stdout clean.
func dispatchScan(flags model.Flags, versionInfo model.VersionInfo, runCtx model.RunContext, opts scanner.Options) (string, error) {
	if !runCtx.ScanReady {
		return "", fmt.Errorf("scan dispatched without a ready run context")
	}

	if flags.Output != "json" {
		spinner.StartSpinner()
	}

	started := time.Now()
	scannerService := scanner.NewService(versionInfo.Version)
	report, reportPath, err := scannerService.Scan(context.Background(), opts)

	outputService := output.NewService(flags.Output)
	if err != nil {
		spinner.StopSpinner()
		return "", err
	}

	if renderErr := outputService.RenderScan(report); renderErr != nil {
		return reportPath, renderErr
	}

	if flags.Store {
		if err := storeScan(flags, report, reportPath, time.Since(started)); err != nil {
			return reportPath, fmt.Errorf("scan succeeded but storing history failed: %w", err)
		}
	}

	return reportPath, nil
}

func storeScan(flags model.Flags, report *model.ScanReport, reportPath string, duration time.Duration) error {
	store, err := storage.NewService(flags.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return err
	}

	_, err = store.SaveScan(context.Background(), storage.SaveScanInput{
		Report:     report,
		ReportPath: reportPath,
		FlagsJSON:  string(flagsJSON),
		Duration:   duration,
	})
	return err
}

func resolveAllRegions(profile string) ([]string, error) {
	cfgService := awsconfig.NewService()
	awsCfg, err := cfgService.GetAWSCfg(context.Background(), "", profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for region discovery: %w", err)
	}

	ec2Client := ec2.NewFromConfig(awsCfg)
	out, err := ec2Client.DescribeRegions(context.Background(), &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to discover regions: %w", err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if r.RegionName == nil || strings.TrimSpace(*r.RegionName) == "" {
			continue
		}
		regions = append(regions, *r.RegionName)
	}
	regions = dedupeRegions(regions)
	if len(regions) == 0 {
		return nil, fmt.Errorf("no enabled regions discovered")
	}
	return regions, nil
}

func dedupeRegions(input []string) []string {
	out := make([]string, 0, len(input))
	for _, r := range input {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}
