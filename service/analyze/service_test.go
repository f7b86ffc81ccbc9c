package analyze

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thirukguru/waf-perimeter/model"
)

func writeReportFile(t *testing.T, report *model.ScanReport) string {
	t.Helper()
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "waf_config_20250601_120000.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleReport() *model.ScanReport {
	return &model.ScanReport{
		SchemaVersion: 1,
		ScanUUID:      "9c4dd2f0-d6c7-4ad9-9a93-1234567890ab",
		GeneratedAt:   "2025-06-01T12:00:00Z",
		ToolVersion:   "test",
		Accounts: []model.AccountReport{
			{
				Profile:   "prod",
				AccountID: "111122223333",
				ScanTime:  "2025-06-01T12:00:00Z",
				CloudFront: model.CloudFrontScopeReport{
					WebACLs: []model.WebACLRecord{
						{Name: "edge-acl", ID: "abc", ARN: "arn:acl/edge", Scope: "CLOUDFRONT", RuleCount: 4, Capacity: 120, DefaultAction: "Allow"},
					},
					Distributions: []model.DistributionAssociation{
						{DistributionID: "E1AAA", DomainName: "d1.cloudfront.net", Status: "Deployed", Enabled: true, Protected: true, WebACLName: "edge-acl"},
						{DistributionID: "E2BBB", DomainName: "d2.cloudfront.net", Status: "Deployed", Enabled: true},
					},
				},
				Regions: []model.RegionReport{
					{
						Region: "eu-west-1",
						LoadBalancers: []model.LoadBalancerAssociation{
							{Name: "api-alb", Type: "application", Scheme: "internet-facing", State: "active", DNSName: "api.example.com", Protected: true, WebACLName: "regional-acl"},
							{Name: "legacy-alb", Type: "application", Scheme: "internal", State: "active", DNSName: "legacy.example.com"},
						},
					},
				},
			},
		},
	}
}

func TestRunDefaultShowsAllSections(t *testing.T) {
	var buf bytes.Buffer
	path := writeReportFile(t, sampleReport())

	if err := NewService(&buf).Run(path, Options{}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Scan Info", "All Resources", "WAF Coverage", "Web ACL Inventory", "Unprotected Resources"} {
		if !strings.Contains(out, want) {
			t.Errorf("default run missing section %q", want)
		}
	}
	if !strings.Contains(out, "Protected:   2 (50.0%)") {
		t.Errorf("coverage percentages missing:\n%s", out)
	}
}

func TestRunUnprotectedOnly(t *testing.T) {
	var buf bytes.Buffer
	path := writeReportFile(t, sampleReport())

	if err := NewService(&buf).Run(path, Options{Resources: true}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "E2BBB") || !strings.Contains(out, "legacy-alb") {
		t.Errorf("expected unprotected resources listed:\n%s", out)
	}
	if strings.Contains(out, "WAF Coverage") {
		t.Error("coverage section should not run when only --resources was asked for")
	}
}

func TestRunSearch(t *testing.T) {
	var buf bytes.Buffer
	path := writeReportFile(t, sampleReport())

	if err := NewService(&buf).Run(path, Options{Search: "API"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "api-alb") {
		t.Error("case-insensitive search should find api-alb")
	}

	buf.Reset()
	if err := NewService(&buf).Run(path, Options{Search: "nothing-here"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "No resource matched") {
		t.Error("expected an explicit no-match message")
	}
}

func TestRunCSVExport(t *testing.T) {
	var buf bytes.Buffer
	path := writeReportFile(t, sampleReport())
	csvPath := filepath.Join(t.TempDir(), "export.csv")

	if err := NewService(&buf).Run(path, Options{CSVPath: csvPath}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("CSV file not written: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("CSV not parseable: %v", err)
	}
	// header + 2 distributions + 2 load balancers
	if len(rows) != 5 {
		t.Fatalf("expected 5 CSV rows, got %d", len(rows))
	}
	if rows[0][0] != "account_id" {
		t.Errorf("unexpected CSV header: %v", rows[0])
	}
}

func TestRunEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	path := writeReportFile(t, &model.ScanReport{SchemaVersion: 1})

	if err := NewService(&buf).Run(path, Options{}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "no account data") {
		t.Error("expected an explanation for an empty report")
	}
}

func TestRunMissingAndMalformedFiles(t *testing.T) {
	var buf bytes.Buffer
	svc := NewService(&buf)

	if err := svc.Run(filepath.Join(t.TempDir(), "absent.json"), Options{}); err == nil {
		t.Error("expected an error for a missing report file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := svc.Run(bad, Options{}); err == nil {
		t.Error("expected an error for a malformed report file")
	}
}
