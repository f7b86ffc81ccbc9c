package scanner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/thirukguru/waf-perimeter/model"
)

func TestScanAggregatesAllProfiles(t *testing.T) {
	svc := &service{version: "test"}
	svc.scanAccount = func(ctx context.Context, profile string, regions []string, debug bool) model.AccountReport {
		return model.AccountReport{Profile: profile, AccountID: "111122223333"}
	}

	dir := t.TempDir()
	report, path, err := svc.Scan(context.Background(), Options{
		Profiles:  []string{"prod", "staging", "dev"},
		Regions:   []string{"us-east-1"},
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(report.Accounts) != 3 {
		t.Fatalf("expected 3 account reports, got %d", len(report.Accounts))
	}
	for i, want := range []string{"prod", "staging", "dev"} {
		if report.Accounts[i].Profile != want {
			t.Errorf("account %d: expected profile %q, got %q", i, want, report.Accounts[i].Profile)
		}
	}
	if report.ScanUUID == "" {
		t.Error("expected a scan UUID")
	}
	if !strings.HasPrefix(filepath.Base(path), "waf_config_") || !strings.HasSuffix(path, ".json") {
		t.Errorf("unexpected report file name: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report file: %v", err)
	}
	var decoded model.ScanReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report file is not valid JSON: %v", err)
	}
	if decoded.ScanUUID != report.ScanUUID {
		t.Errorf("written report UUID %q does not match returned %q", decoded.ScanUUID, report.ScanUUID)
	}
}

func TestScanOneProfileFailureDoesNotAbortSiblings(t *testing.T) {
	svc := &service{version: "test"}
	svc.scanAccount = func(ctx context.Context, profile string, regions []string, debug bool) model.AccountReport {
		acct := model.AccountReport{Profile: profile}
		if profile == "broken" {
			acct.Error = "ExpiredToken: credentials have expired"
		}
		return acct
	}

	report, _, err := svc.Scan(context.Background(), Options{
		Profiles:  []string{"good", "broken"},
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Scan should succeed when at least one profile succeeds: %v", err)
	}
	if report.Accounts[0].Error != "" {
		t.Errorf("good profile should have no error, got %q", report.Accounts[0].Error)
	}
	if report.Accounts[1].Error == "" {
		t.Error("broken profile should carry its error in the report")
	}
}

func TestScanAllProfilesFailed(t *testing.T) {
	svc := &service{version: "test"}
	svc.scanAccount = func(ctx context.Context, profile string, regions []string, debug bool) model.AccountReport {
		return model.AccountReport{Profile: profile, Error: "AccessDenied"}
	}

	_, _, err := svc.Scan(context.Background(), Options{
		Profiles:  []string{"a", "b"},
		OutputDir: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected an error when every profile fails")
	}
	if !strings.Contains(err.Error(), "all 2 profile scans failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestScanNoProfiles(t *testing.T) {
	svc := &service{version: "test"}
	if _, _, err := svc.Scan(context.Background(), Options{}); err == nil {
		t.Fatal("expected an error for an empty profile list")
	}
}

func TestScanNoParallelRunsSequentially(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0

	svc := &service{version: "test"}
	svc.scanAccount = func(ctx context.Context, profile string, regions []string, debug bool) model.AccountReport {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		mu.Lock()
		active--
		mu.Unlock()
		return model.AccountReport{Profile: profile}
	}

	_, _, err := svc.Scan(context.Background(), Options{
		Profiles:   []string{"a", "b", "c"},
		NoParallel: true,
		OutputDir:  t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if maxActive > 1 {
		t.Errorf("expected sequential execution, saw %d concurrent scans", maxActive)
	}
}

func TestResolveDistributionACLNames(t *testing.T) {
	acls := []model.WebACLRecord{
		{Name: "edge-acl", ID: "abc-123", ARN: "arn:aws:wafv2:us-east-1:1:global/webacl/edge-acl/abc-123"},
	}
	dists := []model.DistributionAssociation{
		{DistributionID: "E1", WebACLID: acls[0].ARN, Protected: true},
		{DistributionID: "E2"},
	}
	resolveDistributionACLNames(dists, acls)
	if dists[0].WebACLName != "edge-acl" {
		t.Errorf("expected resolved name edge-acl, got %q", dists[0].WebACLName)
	}
	if dists[1].WebACLName != "" {
		t.Errorf("unprotected distribution should have no ACL name, got %q", dists[1].WebACLName)
	}
}

func TestLatestReportPath(t *testing.T) {
	dir := t.TempDir()
	if got := LatestReportPath(dir); got != "" {
		t.Fatalf("empty dir should yield no path, got %q", got)
	}
	for _, name := range []string{"waf_config_20250101_000000.json", "waf_config_20250601_120000.json", "other.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got := LatestReportPath(dir)
	if filepath.Base(got) != "waf_config_20250601_120000.json" {
		t.Errorf("expected newest report, got %q", got)
	}
}
