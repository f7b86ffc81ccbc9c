// Package scanner fans out over profiles and regions, collecting Web ACLs and
// their protected resources into a single timestamped report.
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	waftypes "github.com/aws/aws-sdk-go-v2/service/wafv2/types"
	"github.com/google/uuid"
	"github.com/thirukguru/waf-perimeter/model"
	awsconfig "github.com/thirukguru/waf-perimeter/service/aws_config"
	"github.com/thirukguru/waf-perimeter/service/albassoc"
	"github.com/thirukguru/waf-perimeter/service/cloudfrontassoc"
	awssts "github.com/thirukguru/waf-perimeter/service/sts"
	"github.com/thirukguru/waf-perimeter/service/waf"
	"golang.org/x/sync/errgroup"
)

const (
	// ReportSchemaVersion is bumped when the report layout changes.
	ReportSchemaVersion = 1

	// reportTimeLayout produces waf_config_YYYYMMDD_HHMMSS.json names; the
	// analyze suggestions glob on the same prefix.
	reportTimeLayout = "20060102_150405"

	// parallelProfileLimit bounds concurrent profile scans. WAFv2 throttles
	// aggressively, so this stays low.
	parallelProfileLimit = 4
)

// NewService creates a new scan engine.
func NewService(version string) Service {
	s := &service{version: version}
	s.scanAccount = s.scanAccountAWS
	return s
}

// Scan collects every profile's report and writes the JSON file. A profile
// failure lands in that profile's report entry; Scan only fails outright when
// no profile produced results or the report cannot be written.
func (s *service) Scan(ctx context.Context, opts Options) (*model.ScanReport, string, error) {
	if len(opts.Profiles) == 0 {
		return nil, "", fmt.Errorf("no profiles to scan")
	}

	report := &model.ScanReport{
		SchemaVersion: ReportSchemaVersion,
		ScanUUID:      uuid.NewString(),
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		ToolVersion:   s.version,
		Accounts:      make([]model.AccountReport, len(opts.Profiles)),
	}

	g, groupCtx := errgroup.WithContext(ctx)
	if opts.NoParallel {
		g.SetLimit(1)
	} else {
		g.SetLimit(parallelProfileLimit)
	}

	for i, profile := range opts.Profiles {
		i, profile := i, profile
		g.Go(func() error {
			report.Accounts[i] = s.scanAccount(groupCtx, profile, opts.Regions, opts.Debug)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	failed := 0
	for _, acct := range report.Accounts {
		if acct.Error != "" {
			failed++
		}
	}
	if failed == len(report.Accounts) {
		return report, "", fmt.Errorf("all %d profile scans failed; first error: %s", failed, report.Accounts[0].Error)
	}

	path, err := s.writeReport(report, opts)
	if err != nil {
		return report, "", err
	}
	return report, path, nil
}

func (s *service) writeReport(report *model.ScanReport, opts Options) (string, error) {
	path := opts.OutputFile
	if path == "" {
		dir := opts.OutputDir
		if dir == "" {
			dir = "."
		}
		name := fmt.Sprintf("waf_config_%s.json", time.Now().Format(reportTimeLayout))
		path = filepath.Join(dir, name)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return path, nil
}

// scanAccountAWS is the real per-profile collector: identity check, then the
// CLOUDFRONT scope pinned to us-east-1, then each requested region's REGIONAL
// scope.
func (s *service) scanAccountAWS(ctx context.Context, profile string, regions []string, debug bool) model.AccountReport {
	acct := model.AccountReport{
		Profile:  profile,
		ScanTime: time.Now().UTC().Format(time.RFC3339),
	}

	cfgService := awsconfig.NewService()
	cfg, err := cfgService.GetAWSCfg(ctx, "", profile)
	if err != nil {
		acct.Error = err.Error()
		return acct
	}

	identity, err := awssts.NewService(cfg).GetCallerIdentity(ctx)
	if err != nil {
		acct.Error = fmt.Sprintf("identity check failed: %v", err)
		return acct
	}
	acct.AccountID = aws.ToString(identity.Account)
	debugf(debug, "[%s] account %s", profile, acct.AccountID)

	cfScope, err := s.scanCloudFrontScope(ctx, cfg, debug)
	if err != nil {
		acct.Error = err.Error()
		return acct
	}
	acct.CloudFront = cfScope

	for _, region := range regions {
		acct.Regions = append(acct.Regions, s.scanRegion(ctx, cfg, region, debug))
	}

	return acct
}

func (s *service) scanCloudFrontScope(ctx context.Context, cfg aws.Config, debug bool) (model.CloudFrontScopeReport, error) {
	var scope model.CloudFrontScopeReport

	globalCfg := cfg.Copy()
	globalCfg.Region = waf.CloudFrontScopeRegion

	wafSvc := waf.NewService(globalCfg)
	cfSvc := cloudfrontassoc.NewService(globalCfg)

	summaries, err := wafSvc.ListWebACLs(ctx, waftypes.ScopeCloudfront)
	if err != nil {
		return scope, err
	}
	debugf(debug, "CLOUDFRONT scope: %d web ACLs", len(summaries))

	for _, summary := range summaries {
		record, err := wafSvc.DescribeWebACL(ctx, waftypes.ScopeCloudfront, summary)
		if err != nil {
			return scope, err
		}

		attached, err := cfSvc.DistributionsForWebACL(ctx, record.ARN)
		if err != nil {
			return scope, err
		}
		for _, d := range attached {
			record.AssociatedResourceARNs = append(record.AssociatedResourceARNs, d.DistributionID)
		}

		scope.WebACLs = append(scope.WebACLs, record)
	}

	dists, err := cfSvc.ListDistributions(ctx)
	if err != nil {
		return scope, err
	}
	resolveDistributionACLNames(dists, scope.WebACLs)
	scope.Distributions = dists

	return scope, nil
}

func (s *service) scanRegion(ctx context.Context, cfg aws.Config, region string, debug bool) model.RegionReport {
	rep := model.RegionReport{Region: region}

	regionalCfg := cfg.Copy()
	regionalCfg.Region = region

	wafSvc := waf.NewService(regionalCfg)
	albSvc := albassoc.NewService(regionalCfg, wafSvc)

	summaries, err := wafSvc.ListWebACLs(ctx, waftypes.ScopeRegional)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	debugf(debug, "[%s] REGIONAL scope: %d web ACLs", region, len(summaries))

	for _, summary := range summaries {
		record, err := wafSvc.DescribeWebACL(ctx, waftypes.ScopeRegional, summary)
		if err != nil {
			rep.Error = err.Error()
			return rep
		}

		assoc, err := wafSvc.AssociatedResources(ctx, record.ARN)
		if err == nil {
			record.AssociatedResourceARNs = assoc.ResourceARNs
		}

		rep.WebACLs = append(rep.WebACLs, record)
	}

	albs, err := albSvc.ListLoadBalancers(ctx)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	rep.LoadBalancers = albs

	return rep
}

// resolveDistributionACLNames fills in the human-readable ACL name on each
// protected distribution by matching its attachment against the scanned ACLs.
func resolveDistributionACLNames(dists []model.DistributionAssociation, acls []model.WebACLRecord) {
	byKey := make(map[string]string, len(acls)*2)
	for _, acl := range acls {
		byKey[acl.ARN] = acl.Name
		byKey[acl.ID] = acl.Name
	}
	for i := range dists {
		if name, ok := byKey[dists[i].WebACLID]; ok {
			dists[i].WebACLName = name
		}
	}
}

// LatestReportPath returns the newest waf_config_*.json in dir, or empty when
// none exists.
func LatestReportPath(dir string) string {
	if dir == "" {
		dir = "."
	}
	matches, err := filepath.Glob(filepath.Join(dir, "waf_config_*.json"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[len(matches)-1]
}

func debugf(enabled bool, format string, args ...any) {
	if enabled {
		fmt.Printf("[debug] "+format+"\n", args...)
	}
}
