// Package audit verifies what a single named Web ACL actually protects. It is
// the manual cross-check against scanner output: resolve the name in the
// CLOUDFRONT scope, ask WAFv2 for associated resources, then sweep every
// CloudFront distribution and compare attachments.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	waftypes "github.com/aws/aws-sdk-go-v2/service/wafv2/types"
	"github.com/aws/smithy-go"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/thirukguru/waf-perimeter/model"
	"github.com/thirukguru/waf-perimeter/service/cloudfrontassoc"
	"github.com/thirukguru/waf-perimeter/service/session"
	"github.com/thirukguru/waf-perimeter/service/waf"
)

// assocState classifies one distribution against the audited Web ACL.
type assocState int

const (
	stateMatches assocState = iota
	stateNoWAF
	stateOtherACL
)

// Options selects the audit target.
type Options struct {
	Profile    string
	WebACLName string
}

// Service is the interface for the association audit.
type Service interface {
	Run(ctx context.Context) error
}

type service struct {
	opts       Options
	sessionSvc session.Service
	wafSvc     waf.Service
	cfSvc      cloudfrontassoc.Service
	out        io.Writer
}

// NewService creates a new audit service writing its report to out.
func NewService(opts Options, sessionSvc session.Service, wafSvc waf.Service, cfSvc cloudfrontassoc.Service, out io.Writer) Service {
	return &service{
		opts:       opts,
		sessionSvc: sessionSvc,
		wafSvc:     wafSvc,
		cfSvc:      cfSvc,
		out:        out,
	}
}

// Run executes the four audit steps in order. Every step is fatal on error;
// there is nothing to roll back.
func (s *service) Run(ctx context.Context) error {
	fmt.Fprintf(s.out, "%s\n", text.FgGreen.Sprint("Audit configuration:"))
	fmt.Fprintf(s.out, "  Profile: %s\n", s.opts.Profile)
	fmt.Fprintf(s.out, "  Web ACL: %s\n", s.opts.WebACLName)
	fmt.Fprintf(s.out, "  Region:  %s (CLOUDFRONT scope)\n\n", waf.CloudFrontScopeRegion)

	// [1/4] Session
	fmt.Fprintf(s.out, "%s\n", text.FgBlue.Sprint("[1/4] Verifying AWS access..."))
	status := s.sessionSvc.EnsureLoggedIn(ctx, s.opts.Profile)
	if !status.LoggedIn {
		return fmt.Errorf("no valid session for profile %s: %s", s.opts.Profile, status.Err)
	}
	fmt.Fprintf(s.out, "  %s authenticated, account: %s\n\n", text.FgGreen.Sprint("✓"), status.AccountID)

	// [2/4] Resolve the Web ACL by name
	fmt.Fprintf(s.out, "%s\n", text.FgBlue.Sprint("[2/4] Resolving Web ACL..."))
	target, available, err := s.wafSvc.FindWebACLByName(ctx, waftypes.ScopeCloudfront, s.opts.WebACLName)
	if err != nil {
		return fmt.Errorf("failed to list CLOUDFRONT scope web ACLs: %w", err)
	}
	if target == nil {
		fmt.Fprintf(s.out, "  %s no Web ACL named '%s'\n\n", text.FgRed.Sprint("✗"), s.opts.WebACLName)
		fmt.Fprintf(s.out, "%s\n", text.FgYellow.Sprint("Available Web ACLs:"))
		if len(available) == 0 {
			fmt.Fprintf(s.out, "  %s\n", text.FgYellow.Sprint("(none found)"))
		}
		for _, acl := range available {
			fmt.Fprintf(s.out, "  - %s (ID: %s)\n", aws.ToString(acl.Name), aws.ToString(acl.Id))
		}
		return fmt.Errorf("web ACL %q not found in CLOUDFRONT scope", s.opts.WebACLName)
	}

	targetARN := aws.ToString(target.ARN)
	targetID := aws.ToString(target.Id)
	fmt.Fprintf(s.out, "  %s found Web ACL\n", text.FgGreen.Sprint("✓"))
	fmt.Fprintf(s.out, "  Name: %s\n", aws.ToString(target.Name))
	fmt.Fprintf(s.out, "  ID:   %s\n", targetID)
	fmt.Fprintf(s.out, "  ARN:  %s\n\n", targetARN)

	// [3/4] WAFv2-side associations
	fmt.Fprintf(s.out, "%s\n", text.FgBlue.Sprint("[3/4] Listing associated resources (WAFv2 API)..."))
	result, err := s.wafSvc.AssociatedResources(ctx, targetARN)
	if err != nil {
		fmt.Fprintf(s.out, "  %s ListResourcesForWebACL failed: %v\n", text.FgRed.Sprint("✗"), err)
		fmt.Fprintf(s.out, "  Likely causes:\n")
		fmt.Fprintf(s.out, "    - the profile lacks wafv2:ListResourcesForWebACL permission\n")
		fmt.Fprintf(s.out, "    - the Web ACL genuinely has no associations of this type\n")
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(s.out, "  API error code: %s\n", apiErr.ErrorCode())
		}
		return fmt.Errorf("failed to list associated resources: %w", err)
	}

	if len(result.ResourceARNs) == 0 {
		fmt.Fprintf(s.out, "  %s no resources reported by the WAFv2 API\n", text.FgYellow.Sprint("⚠"))
		fmt.Fprintf(s.out, "  Raw response:\n%s\n", result.RawResponse)
		fmt.Fprintf(s.out, "  Note: CloudFront attachments do not appear here; they are resolved in the next step.\n\n")
	} else {
		fmt.Fprintf(s.out, "  %s %d associated resource(s):\n", text.FgGreen.Sprint("✓"), len(result.ResourceARNs))
		for _, arn := range result.ResourceARNs {
			fmt.Fprintf(s.out, "    - %s\n", arn)
		}
		fmt.Fprintln(s.out)
	}

	// [4/4] CloudFront cross-reference
	fmt.Fprintf(s.out, "%s\n", text.FgBlue.Sprint("[4/4] Cross-referencing CloudFront distributions..."))
	dists, err := s.cfSvc.ListDistributions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list distributions: %w", err)
	}
	if len(dists) == 0 {
		fmt.Fprintf(s.out, "  %s no CloudFront distributions in this account\n", text.FgYellow.Sprint("⚠"))
		return nil
	}

	matches := 0
	for _, d := range dists {
		switch classifyDistribution(d, targetARN, targetID) {
		case stateMatches:
			matches++
			fmt.Fprintf(s.out, "  %s %s (%s) uses this Web ACL\n", text.FgGreen.Sprint("✓"), d.DistributionID, d.DomainName)
		case stateNoWAF:
			fmt.Fprintf(s.out, "  %s %s (%s) has no Web ACL\n", text.FgYellow.Sprint("⚠"), d.DistributionID, d.DomainName)
		case stateOtherACL:
			fmt.Fprintf(s.out, "  %s %s (%s) is attached to a different Web ACL: %s\n", text.FgCyan.Sprint("ℹ"), d.DistributionID, d.DomainName, d.WebACLID)
		}
	}

	fmt.Fprintf(s.out, "\n%s %d of %d distribution(s) reference %s\n",
		text.FgGreen.Sprint("Audit complete:"), matches, len(dists), s.opts.WebACLName)
	return nil
}

// classifyDistribution compares a distribution's attached Web ACL identifier
// against both the target ARN and its bare ID.
func classifyDistribution(d model.DistributionAssociation, targetARN, targetID string) assocState {
	switch d.WebACLID {
	case "":
		return stateNoWAF
	case targetARN, targetID:
		return stateMatches
	default:
		return stateOtherACL
	}
}
