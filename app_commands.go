package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/pflag"
	"github.com/thirukguru/waf-perimeter/service/analyze"
	"github.com/thirukguru/waf-perimeter/service/audit"
	awsconfig "github.com/thirukguru/waf-perimeter/service/aws_config"
	"github.com/thirukguru/waf-perimeter/service/cloudfrontassoc"
	"github.com/thirukguru/waf-perimeter/service/doctor"
	"github.com/thirukguru/waf-perimeter/service/scanconfig"
	"github.com/thirukguru/waf-perimeter/service/scanner"
	"github.com/thirukguru/waf-perimeter/service/storage"
	"github.com/thirukguru/waf-perimeter/service/waf"
)

// runCheckCommand audits a single named web ACL against the CloudFront scope.
func runCheckCommand(args []string) error {
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	profile := fs.StringP("profile", "p", "", "AWS profile to use (default: first admin profile)")
	webACL := fs.StringP("web-acl", "w", "", "Name of the web ACL to audit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *webACL == "" && fs.NArg() > 0 {
		*webACL = fs.Arg(0)
	}
	if *webACL == "" {
		return fmt.Errorf("usage: waf-perimeter check --web-acl <name> [--profile <p>]")
	}

	ctx := context.Background()
	sessionService := newSessionService()

	resolved, err := sessionService.ResolveProfile([]string{*profile})
	if err != nil {
		return fmt.Errorf("failed to resolve a profile: %w", err)
	}

	// Make sure a session exists before the SDK clients are built; building
	// them forces a credential retrieval.
	status := sessionService.EnsureLoggedIn(ctx, resolved)
	if !status.LoggedIn {
		return fmt.Errorf("no valid session for profile %s: %s", resolved, status.Err)
	}

	awsCfg, err := awsconfig.NewService().GetAWSCfg(ctx, waf.CloudFrontScopeRegion, resolved)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	auditService := audit.NewService(
		audit.Options{Profile: resolved, WebACLName: *webACL},
		sessionService,
		waf.NewService(awsCfg),
		cloudfrontassoc.NewService(awsCfg),
		os.Stdout,
	)
	return auditService.Run(ctx)
}

// runDoctorCommand runs the environment diagnostics standalone.
func runDoctorCommand(args []string) error {
	fs := pflag.NewFlagSet("doctor", pflag.ContinueOnError)
	configPath := fs.String("config-path", scanconfig.DefaultPath, "Path to the scan config file")
	initConfig := fs.Bool("init-config", false, "Write a starter scan config and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *initConfig {
		if err := doctor.WriteStarterConfig(*configPath); err != nil {
			return err
		}
		fmt.Printf("%s Wrote starter config to %s\n", text.FgGreen.Sprint("✓"), *configPath)
		return nil
	}

	doctorService := doctor.NewService()
	result := doctorService.Run(*configPath)
	doctorService.Render(result)
	if !result.Healthy() {
		return fmt.Errorf("mandatory dependencies missing")
	}
	return nil
}

// runAnalyzeCommand analyzes a previously written scan report.
func runAnalyzeCommand(args []string) error {
	fs := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	list := fs.Bool("list", false, "List every scanned resource")
	stats := fs.Bool("stats", false, "Coverage statistics and web ACL inventory")
	resources := fs.Bool("resources", false, "List unprotected resources")
	search := fs.String("search", "", "Case-insensitive name search")
	csvPath := fs.String("csv", "", "Export resources to a CSV file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reportPath := ""
	if fs.NArg() > 0 {
		reportPath = fs.Arg(0)
	} else if reportPath = scanner.LatestReportPath("."); reportPath != "" {
		fmt.Printf("Using newest report: %s\n", reportPath)
	}
	if reportPath == "" {
		return fmt.Errorf("no report file given and no waf_config_*.json found in the current directory")
	}

	return analyze.NewService(os.Stdout).Run(reportPath, analyze.Options{
		List:      *list,
		Stats:     *stats,
		Resources: *resources,
		Search:    *search,
		CSVPath:   *csvPath,
	})
}

func runStorageCommand(cmd string, args []string) error {
	switch cmd {
	case "db":
		return runDBCommand(args)
	case "history":
		return runHistoryCommand(args)
	default:
		return fmt.Errorf("unsupported command: %s", cmd)
	}
}

func runDBCommand(args []string) error {
	fs := pflag.NewFlagSet("db", pflag.ContinueOnError)
	dbPath := fs.String("db-path", "", "SQLite database path")
	olderThan := fs.Int("older-than", 30, "Purge scans older than N days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: waf-perimeter db <vacuum|purge> [--db-path ...]")
	}

	store, err := storage.NewService(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch rest[0] {
	case "vacuum":
		return store.Vacuum(context.Background())
	case "purge":
		count, err := store.PurgeOlderThan(context.Background(), *olderThan)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d scans\n", count)
		return nil
	default:
		return fmt.Errorf("unsupported db command: %s", rest[0])
	}
}

func runHistoryCommand(args []string) error {
	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	dbPath := fs.String("db-path", "", "SQLite database path")
	limit := fs.Int("limit", 20, "Number of rows to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: waf-perimeter history <list|show>")
	}

	store, err := storage.NewService(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch rest[0] {
	case "list":
		scans, err := store.GetRecentScans(*limit)
		if err != nil {
			return err
		}
		for _, s := range scans {
			fmt.Printf("%d\t%s\t%d account(s)\t%d acl(s)\t%d/%d protected\t%s\n",
				s.ScanID, s.ScanTimestamp.Format("2006-01-02 15:04:05"),
				s.AccountCount, s.WebACLCount,
				s.ProtectedDistributions+s.ProtectedLoadBalancers,
				s.DistributionCount+s.LoadBalancerCount,
				s.ReportPath)
		}
		return nil
	case "show":
		if len(rest) < 2 {
			return fmt.Errorf("usage: waf-perimeter history show <scan-id>")
		}
		scanID, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil {
			return err
		}
		accounts, err := store.GetScanAccounts(scanID)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			if a.Error != "" {
				fmt.Printf("%s\t%s\tfailed: %s\n", a.Profile, a.AccountID, a.Error)
				continue
			}
			fmt.Printf("%s\t%s\t%d acl(s)\t%d/%d distributions\t%d/%d load balancers\n",
				a.Profile, a.AccountID, a.WebACLCount,
				a.ProtectedDistributions, a.DistributionCount,
				a.ProtectedLoadBalancers, a.LoadBalancerCount)
		}
		return nil
	default:
		return fmt.Errorf("unsupported history command: %s", rest[0])
	}
}
