package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thirukguru/waf-perimeter/model"
)

func menuReader(input string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(input))
}

func writeScanConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waf_scan_config.json")
	content := `{"profiles": ["prod"], "regions": {"common": ["us-east-1"]}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildMenuFlagsConfigScan(t *testing.T) {
	base := model.Flags{ConfigPath: writeScanConfig(t)}

	got, ok := buildMenuFlags(menuReader(""), base, "1")
	if !ok {
		t.Fatal("config scan should dispatch when the config exists")
	}
	if got.Debug {
		t.Error("option 1 must not enable debug")
	}

	got, ok = buildMenuFlags(menuReader(""), base, "4")
	if !ok || !got.Debug {
		t.Errorf("option 4 should dispatch with debug enabled, got ok=%v debug=%v", ok, got.Debug)
	}
}

func TestBuildMenuFlagsConfigMissing(t *testing.T) {
	base := model.Flags{ConfigPath: filepath.Join(t.TempDir(), "absent.json")}
	if _, ok := buildMenuFlags(menuReader(""), base, "1"); ok {
		t.Fatal("a missing config must not dispatch")
	}
}

func TestBuildMenuFlagsQuickTest(t *testing.T) {
	got, ok := buildMenuFlags(menuReader("staging\n\n"), model.Flags{}, "2")
	if !ok {
		t.Fatal("quick test with a profile should dispatch")
	}
	if len(got.Profiles) != 1 || got.Profiles[0] != "staging" {
		t.Errorf("unexpected profiles: %v", got.Profiles)
	}
	if len(got.Regions) != 1 || got.Regions[0] != "us-east-1" {
		t.Errorf("empty region input should default to us-east-1, got %v", got.Regions)
	}

	if _, ok := buildMenuFlags(menuReader("\n"), model.Flags{}, "2"); ok {
		t.Error("quick test without a profile must not dispatch")
	}
}

func TestBuildMenuFlagsCustom(t *testing.T) {
	input := "prod, staging\nus-east-1 eu-west-1\nn\n"
	got, ok := buildMenuFlags(menuReader(input), model.Flags{}, "3")
	if !ok {
		t.Fatal("custom scan with profiles should dispatch")
	}
	if len(got.Profiles) != 2 || got.Profiles[1] != "staging" {
		t.Errorf("unexpected profiles: %v", got.Profiles)
	}
	if len(got.Regions) != 2 || got.Regions[0] != "us-east-1" {
		t.Errorf("unexpected regions: %v", got.Regions)
	}
	if !got.NoParallel {
		t.Error("answering n to the parallel prompt should disable parallel scanning")
	}

	if _, ok := buildMenuFlags(menuReader("\n\n\n"), model.Flags{}, "3"); ok {
		t.Error("custom scan without profiles must not dispatch")
	}
}

func TestBuildMenuFlagsNonDispatchChoices(t *testing.T) {
	for _, choice := range []string{"0", "5", "9", "x", ""} {
		if _, ok := buildMenuFlags(menuReader(""), model.Flags{}, choice); ok {
			t.Errorf("choice %q must not dispatch a scan", choice)
		}
	}
}
