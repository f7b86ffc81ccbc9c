// Package analyze reads a saved scan report and renders operator-facing
// summaries: inventories, protection coverage, unprotected resources, name
// search and CSV export.
package analyze

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/thirukguru/waf-perimeter/model"
)

// NewService creates an analyzer writing to out.
func NewService(out io.Writer) Service {
	return &service{out: out}
}

func (s *service) Run(reportPath string, opts Options) error {
	report, err := loadReport(reportPath)
	if err != nil {
		return err
	}

	if len(report.Accounts) == 0 {
		fmt.Fprintln(s.out, "The report contains no account data. Run a scan first.")
		return nil
	}

	s.showScanInfo(report)

	runAll := !opts.List && !opts.Stats && !opts.Resources && opts.Search == "" && opts.CSVPath == ""

	if runAll || opts.List {
		s.listAll(report)
	}
	if runAll || opts.Stats {
		s.coverage(report)
		s.aclInventory(report)
		s.byRegion(report)
	}
	if runAll || opts.Resources {
		s.unprotected(report)
	}
	if opts.Search != "" {
		s.search(report, opts.Search)
	}
	if opts.CSVPath != "" {
		if err := s.exportCSV(report, opts.CSVPath); err != nil {
			return err
		}
	}

	return nil
}

func loadReport(path string) (*model.ScanReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	var report model.ScanReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &report, nil
}

func (s *service) section(title string) {
	fmt.Fprintln(s.out, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(s.out, title)
	fmt.Fprintln(s.out, strings.Repeat("=", 70))
}

func (s *service) showScanInfo(report *model.ScanReport) {
	s.section("Scan Info")
	fmt.Fprintf(s.out, "\nScan ID: %s\nGenerated: %s (tool %s)\n", report.ScanUUID, report.GeneratedAt, report.ToolVersion)

	for _, acct := range report.Accounts {
		fmt.Fprintf(s.out, "\nAccount: %s (%s)\n", acct.AccountID, acct.Profile)
		fmt.Fprintf(s.out, "  Scan time: %s\n", acct.ScanTime)
		if acct.Error != "" {
			fmt.Fprintf(s.out, "  %s\n", text.FgRed.Sprintf("✗ scan failed: %s", acct.Error))
		}
	}
}

func (s *service) listAll(report *model.ScanReport) {
	s.section("All Resources")

	for _, acct := range report.Accounts {
		fmt.Fprintf(s.out, "\nAccount: %s (%s)\n", acct.AccountID, acct.Profile)

		if len(acct.CloudFront.Distributions) > 0 {
			t := s.newTable()
			t.AppendHeader(table.Row{"Distribution", "Domain", "Status", "Enabled", "WAF"})
			for _, d := range acct.CloudFront.Distributions {
				t.AppendRow(table.Row{d.DistributionID, d.DomainName, d.Status, d.Enabled, protectionCell(d.Protected, d.WebACLName)})
			}
			t.Render()
		}

		for _, region := range acct.Regions {
			if len(region.LoadBalancers) == 0 {
				continue
			}
			fmt.Fprintf(s.out, "\n  Region: %s\n", region.Region)

			t := s.newTable()
			t.AppendHeader(table.Row{"Load Balancer", "Type", "Scheme", "State", "DNS", "WAF"})
			for _, lb := range region.LoadBalancers {
				t.AppendRow(table.Row{lb.Name, lb.Type, lb.Scheme, lb.State, lb.DNSName, protectionCell(lb.Protected, lb.WebACLName)})
			}
			t.Render()
		}
	}
}

func (s *service) coverage(report *model.ScanReport) {
	s.section("WAF Coverage")

	var globalTotal, globalProtected int

	for _, acct := range report.Accounts {
		total, protected := 0, 0
		for _, d := range acct.CloudFront.Distributions {
			total++
			if d.Protected {
				protected++
			}
		}
		for _, region := range acct.Regions {
			for _, lb := range region.LoadBalancers {
				total++
				if lb.Protected {
					protected++
				}
			}
		}

		globalTotal += total
		globalProtected += protected

		fmt.Fprintf(s.out, "\nAccount %s (%s):\n", acct.AccountID, acct.Profile)
		fmt.Fprintf(s.out, "  Resources:   %d\n", total)
		fmt.Fprintf(s.out, "  Protected:   %d (%s)\n", protected, percent(protected, total))
		fmt.Fprintf(s.out, "  Unprotected: %d (%s)\n", total-protected, percent(total-protected, total))
	}

	fmt.Fprintf(s.out, "\nGlobal:\n")
	fmt.Fprintf(s.out, "  Resources:   %d\n", globalTotal)
	fmt.Fprintf(s.out, "  Protected:   %d (%s)\n", globalProtected, percent(globalProtected, globalTotal))
	fmt.Fprintf(s.out, "  Unprotected: %d (%s)\n", globalTotal-globalProtected, percent(globalTotal-globalProtected, globalTotal))
}

func (s *service) aclInventory(report *model.ScanReport) {
	s.section("Web ACL Inventory")

	t := s.newTable()
	t.AppendHeader(table.Row{"Account", "Scope", "Name", "Rules", "Capacity", "Default", "Resources"})
	rows := 0

	for _, acct := range report.Accounts {
		for _, acl := range acct.CloudFront.WebACLs {
			t.AppendRow(table.Row{acct.AccountID, acl.Scope, acl.Name, acl.RuleCount, acl.Capacity, acl.DefaultAction, len(acl.AssociatedResourceARNs)})
			rows++
		}
		for _, region := range acct.Regions {
			for _, acl := range region.WebACLs {
				t.AppendRow(table.Row{acct.AccountID, fmt.Sprintf("%s (%s)", acl.Scope, region.Region), acl.Name, acl.RuleCount, acl.Capacity, acl.DefaultAction, len(acl.AssociatedResourceARNs)})
				rows++
			}
		}
	}

	if rows == 0 {
		fmt.Fprintln(s.out, "\nNo web ACLs found in the report.")
		return
	}
	t.Render()
}

func (s *service) byRegion(report *model.ScanReport) {
	s.section("By Region")

	type regionStat struct {
		total     int
		protected int
	}
	stats := map[string]*regionStat{}

	for _, acct := range report.Accounts {
		for _, region := range acct.Regions {
			st, ok := stats[region.Region]
			if !ok {
				st = &regionStat{}
				stats[region.Region] = st
			}
			for _, lb := range region.LoadBalancers {
				st.total++
				if lb.Protected {
					st.protected++
				}
			}
		}
	}

	if len(stats) == 0 {
		fmt.Fprintln(s.out, "\nNo regional data in the report.")
		return
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if stats[names[i]].total != stats[names[j]].total {
			return stats[names[i]].total > stats[names[j]].total
		}
		return names[i] < names[j]
	})

	fmt.Fprintln(s.out)
	for _, name := range names {
		st := stats[name]
		fmt.Fprintf(s.out, "  %s: %d load balancer(s), %d protected (%s)\n", name, st.total, st.protected, percent(st.protected, st.total))
	}
}

func (s *service) unprotected(report *model.ScanReport) {
	s.section("Unprotected Resources")

	found := false
	for _, acct := range report.Accounts {
		printed := false
		header := func() {
			if !printed {
				fmt.Fprintf(s.out, "\nAccount: %s (%s)\n", acct.AccountID, acct.Profile)
				printed = true
				found = true
			}
		}

		for _, d := range acct.CloudFront.Distributions {
			if d.Protected {
				continue
			}
			header()
			fmt.Fprintf(s.out, "  %s %s (%s)\n", text.FgYellow.Sprint("⚠"), d.DistributionID, d.DomainName)
		}
		for _, region := range acct.Regions {
			for _, lb := range region.LoadBalancers {
				if lb.Protected {
					continue
				}
				header()
				fmt.Fprintf(s.out, "  %s %s [%s] %s\n", text.FgYellow.Sprint("⚠"), lb.Name, region.Region, lb.DNSName)
			}
		}
	}

	if !found {
		fmt.Fprintln(s.out, "\n"+text.FgGreen.Sprint("✓ Every distribution and load balancer has a web ACL attached"))
	}
}

func (s *service) search(report *model.ScanReport, pattern string) {
	s.section(fmt.Sprintf("Search: %q", pattern))

	needle := strings.ToLower(pattern)
	found := false

	for _, acct := range report.Accounts {
		for _, acl := range acct.CloudFront.WebACLs {
			if strings.Contains(strings.ToLower(acl.Name), needle) {
				found = true
				fmt.Fprintf(s.out, "\n  • %s (web ACL, scope CLOUDFRONT)\n", acl.Name)
				fmt.Fprintf(s.out, "    Account: %s (%s), %d rule(s), %d associated resource(s)\n",
					acct.AccountID, acct.Profile, acl.RuleCount, len(acl.AssociatedResourceARNs))
			}
		}
		for _, region := range acct.Regions {
			for _, acl := range region.WebACLs {
				if strings.Contains(strings.ToLower(acl.Name), needle) {
					found = true
					fmt.Fprintf(s.out, "\n  • %s (web ACL, region %s)\n", acl.Name, region.Region)
					fmt.Fprintf(s.out, "    Account: %s (%s), %d rule(s), %d associated resource(s)\n",
						acct.AccountID, acct.Profile, acl.RuleCount, len(acl.AssociatedResourceARNs))
				}
			}
		}
		for _, d := range acct.CloudFront.Distributions {
			if !strings.Contains(strings.ToLower(d.DistributionID), needle) &&
				!strings.Contains(strings.ToLower(d.DomainName), needle) {
				continue
			}
			found = true
			fmt.Fprintf(s.out, "\n  • %s (%s)\n", d.DistributionID, d.DomainName)
			fmt.Fprintf(s.out, "    Account: %s (%s), scope: CLOUDFRONT\n", acct.AccountID, acct.Profile)
			fmt.Fprintf(s.out, "    WAF: %s\n", protectionCell(d.Protected, d.WebACLName))
		}
		for _, region := range acct.Regions {
			for _, lb := range region.LoadBalancers {
				if !strings.Contains(strings.ToLower(lb.Name), needle) {
					continue
				}
				found = true
				fmt.Fprintf(s.out, "\n  • %s\n", lb.Name)
				fmt.Fprintf(s.out, "    Account: %s (%s), region: %s\n", acct.AccountID, acct.Profile, region.Region)
				fmt.Fprintf(s.out, "    DNS: %s\n", lb.DNSName)
				fmt.Fprintf(s.out, "    WAF: %s\n", protectionCell(lb.Protected, lb.WebACLName))
			}
		}
	}

	if !found {
		fmt.Fprintf(s.out, "\nNo resource matched %q\n", pattern)
	}
}

func (s *service) exportCSV(report *model.ScanReport, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"account_id", "profile", "region", "resource_type", "name",
		"dns_or_domain", "state", "scheme", "protected", "web_acl",
	}); err != nil {
		return err
	}

	for _, acct := range report.Accounts {
		for _, d := range acct.CloudFront.Distributions {
			record := []string{
				acct.AccountID, acct.Profile, "global", "cloudfront", d.DistributionID,
				d.DomainName, d.Status, "", yesNo(d.Protected), d.WebACLName,
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		for _, region := range acct.Regions {
			for _, lb := range region.LoadBalancers {
				record := []string{
					acct.AccountID, acct.Profile, region.Region, lb.Type, lb.Name,
					lb.DNSName, lb.State, lb.Scheme, yesNo(lb.Protected), lb.WebACLName,
				}
				if err := w.Write(record); err != nil {
					return err
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "\n%s\n", text.FgGreen.Sprintf("✓ Exported CSV to %s", path))
	return nil
}

func (s *service) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(s.out)
	t.SetStyle(table.StyleRounded)
	return t
}

func protectionCell(protected bool, aclName string) string {
	if !protected {
		return text.FgRed.Sprint("✗ none")
	}
	if aclName == "" {
		return text.FgGreen.Sprint("✓ protected")
	}
	return text.FgGreen.Sprintf("✓ %s", aclName)
}

func percent(part, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
