package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/thirukguru/waf-perimeter/model"
	"github.com/thirukguru/waf-perimeter/service/flag"
	"github.com/thirukguru/waf-perimeter/service/scanconfig"
)

// menuState is one state of the interactive dispatcher loop.
type menuState int

const (
	stateMenu menuState = iota
	stateDispatch
	statePostAction
	stateExit
)

// runMenu drives the interactive scan dispatcher. Each choice builds scan
// options from prompted fields; nothing the operator types is ever handed to
// a shell.
func runMenu(flags model.Flags, versionInfo model.VersionInfo) error {
	reader := bufio.NewReader(os.Stdin)

	state := stateMenu
	var pending model.Flags
	var reportPath string
	var scanErr error

	for state != stateExit {
		switch state {
		case stateMenu:
			printMenu(flags.ConfigPath)
			choice := promptLine(reader, "Select an option: ")

			next, ok := buildMenuFlags(reader, flags, choice)
			switch {
			case choice == "0":
				state = stateExit
			case choice == "5":
				printMenuHelp()
			case !ok:
				// message already printed
			default:
				pending = next
				state = stateDispatch
			}

		case stateDispatch:
			reportPath, scanErr = menuScan(pending, versionInfo)
			state = statePostAction

		case statePostAction:
			if scanErr != nil {
				fmt.Printf("\n%s\n\n", text.FgRed.Sprintf("✗ Scan failed: %v", scanErr))
			} else {
				printAnalyzerSuggestions(reportPath)
			}
			state = stateMenu
		}
	}

	fmt.Println("Bye.")
	return nil
}

// buildMenuFlags turns a menu choice into the flags for one dispatch. Returns
// ok=false when the choice needs no dispatch (help, exit, invalid input,
// missing prerequisites).
func buildMenuFlags(reader *bufio.Reader, base model.Flags, choice string) (model.Flags, bool) {
	switch choice {
	case "1", "4":
		if !scanconfig.NewService().Exists(base.ConfigPath) {
			fmt.Printf("\n%s\n", text.FgRed.Sprintf("✗ Scan config %s not found.", base.ConfigPath))
			fmt.Println("  Create one with 'waf-perimeter doctor --init-config' and fill in your profiles.")
			fmt.Println()
			return base, false
		}
		next := base
		next.Debug = choice == "4"
		return next, true

	case "2":
		profile := promptLine(reader, "AWS profile to test: ")
		if profile == "" {
			fmt.Printf("\n%s\n\n", text.FgRed.Sprint("✗ A profile is required for a quick test."))
			return base, false
		}
		region := promptLine(reader, "Region [us-east-1]: ")
		if region == "" {
			region = "us-east-1"
		}
		next := base
		next.Profiles = []string{profile}
		next.Regions = []string{region}
		return next, true

	case "3":
		profiles := flag.SplitList(promptLine(reader, "Profiles (comma or space separated): "))
		if len(profiles) == 0 {
			fmt.Printf("\n%s\n\n", text.FgRed.Sprint("✗ At least one profile is required."))
			return base, false
		}
		regions := flag.SplitList(promptLine(reader, "Regions (comma or space separated): "))
		parallel := promptLine(reader, "Scan profiles in parallel? [Y/n]: ")

		next := base
		next.Profiles = profiles
		next.Regions = regions
		next.NoParallel = strings.EqualFold(parallel, "n") || strings.EqualFold(parallel, "no")
		return next, true

	case "0", "5":
		return base, false

	default:
		fmt.Printf("\n%s\n\n", text.FgYellow.Sprintf("⚠ Unknown option %q", choice))
		return base, false
	}
}

func menuScan(flags model.Flags, versionInfo model.VersionInfo) (string, error) {
	runCtx, opts, err := prepareScan(flags, false)
	if err != nil {
		return "", err
	}
	return dispatchScan(flags, versionInfo, runCtx, opts)
}

func printMenu(configPath string) {
	configState := text.FgYellow.Sprint("not found")
	if scanconfig.NewService().Exists(configPath) {
		configState = text.FgGreen.Sprint("found")
	}

	fmt.Println()
	fmt.Println(text.FgCyan.Sprint("What would you like to do?"))
	fmt.Printf("  1) Scan profiles from %s (%s)\n", configPath, configState)
	fmt.Println("  2) Quick test against a single profile")
	fmt.Println("  3) Scan with custom profiles and regions")
	fmt.Println("  4) Scan from config with debug logging")
	fmt.Println("  5) Help")
	fmt.Println("  0) Exit")
}

func printMenuHelp() {
	fmt.Println()
	fmt.Println("waf-perimeter enumerates WAFv2 web ACLs across your AWS accounts and reports")
	fmt.Println("which CloudFront distributions and load balancers each one protects.")
	fmt.Println()
	fmt.Println("Scans read profiles and regions from waf_scan_config.json (option 1) or from")
	fmt.Println("the values you type here (options 2 and 3). Results are written to a")
	fmt.Println("timestamped waf_config_*.json report in the output directory.")
	fmt.Println()
	fmt.Println("Other commands:")
	fmt.Println("  waf-perimeter check --profile <p> --web-acl <name>   audit one web ACL")
	fmt.Println("  waf-perimeter analyze <report.json>                  analyze a saved report")
	fmt.Println("  waf-perimeter doctor                                 environment diagnostics")
	fmt.Println("  waf-perimeter history list                           scan history")
}

func printAnalyzerSuggestions(reportPath string) {
	fmt.Println()
	fmt.Println(text.FgGreen.Sprintf("✓ Scan complete. Report: %s", reportPath))
	fmt.Println()
	fmt.Println("Analyze it with:")
	fmt.Printf("  waf-perimeter analyze %s --list\n", reportPath)
	fmt.Printf("  waf-perimeter analyze %s --stats\n", reportPath)
	fmt.Printf("  waf-perimeter analyze %s --resources\n", reportPath)
	fmt.Printf("  waf-perimeter analyze %s --csv waf_report.csv\n", reportPath)
	fmt.Println()
}

func promptLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(line)
}
