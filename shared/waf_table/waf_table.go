// Package waftable renders scan results in table format.
package waftable

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/thirukguru/waf-perimeter/model"
)

// DrawScanSummary renders the collected web ACLs and protected resources for
// every scanned account.
func DrawScanSummary(report *model.ScanReport) {
	for _, acct := range report.Accounts {
		fmt.Printf("\n🛡️  Account %s (%s)\n", acct.AccountID, acct.Profile)

		if acct.Error != "" {
			fmt.Println("   " + text.FgRed.Sprintf("✗ scan failed: %s", acct.Error))
			continue
		}

		drawWebACLTable(acct)
		drawDistributionTable(acct)
		drawLoadBalancerTables(acct)
	}

	drawTotals(report)
}

func drawWebACLTable(acct model.AccountReport) {
	type scopedACL struct {
		scope string
		acl   model.WebACLRecord
	}

	var acls []scopedACL
	for _, acl := range acct.CloudFront.WebACLs {
		acls = append(acls, scopedACL{scope: "CLOUDFRONT", acl: acl})
	}
	for _, region := range acct.Regions {
		for _, acl := range region.WebACLs {
			acls = append(acls, scopedACL{scope: fmt.Sprintf("REGIONAL (%s)", region.Region), acl: acl})
		}
	}

	if len(acls) == 0 {
		fmt.Println("   No web ACLs found")
		return
	}

	fmt.Println("\n" + text.FgCyan.Sprint("🧱 Web ACLs"))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Scope", "Name", "Rules", "Capacity", "Default Action", "Associated Resources"})

	for _, entry := range acls {
		t.AppendRow(table.Row{
			entry.scope,
			entry.acl.Name,
			entry.acl.RuleCount,
			entry.acl.Capacity,
			entry.acl.DefaultAction,
			len(entry.acl.AssociatedResourceARNs),
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func drawDistributionTable(acct model.AccountReport) {
	dists := acct.CloudFront.Distributions
	if len(dists) == 0 {
		return
	}

	fmt.Println("\n" + text.FgCyan.Sprint("🌍 CloudFront Distributions"))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Distribution", "Domain", "Status", "Enabled", "WAF"})

	for _, d := range dists {
		t.AppendRow(table.Row{d.DistributionID, d.DomainName, d.Status, d.Enabled, protectionCell(d.Protected, d.WebACLName)})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func drawLoadBalancerTables(acct model.AccountReport) {
	for _, region := range acct.Regions {
		if region.Error != "" {
			fmt.Printf("\n   %s\n", text.FgRed.Sprintf("✗ %s: %s", region.Region, region.Error))
			continue
		}
		if len(region.LoadBalancers) == 0 {
			continue
		}

		fmt.Println("\n" + text.FgCyan.Sprintf("⚖️  Load Balancers (%s)", region.Region))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "Type", "Scheme", "State", "DNS", "WAF"})

		for _, lb := range region.LoadBalancers {
			t.AppendRow(table.Row{lb.Name, lb.Type, lb.Scheme, lb.State, lb.DNSName, protectionCell(lb.Protected, lb.WebACLName)})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	}
}

func drawTotals(report *model.ScanReport) {
	var total, protected int
	for _, acct := range report.Accounts {
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
	}

	if total == 0 {
		return
	}

	unprotected := total - protected
	fmt.Printf("\n   %d resource(s): ", total)
	fmt.Printf("%s ", text.FgGreen.Sprintf("✓ %d protected", protected))
	if unprotected > 0 {
		fmt.Printf("%s", text.FgYellow.Sprintf("⚠ %d unprotected", unprotected))
	}
	fmt.Println()
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
