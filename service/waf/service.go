// Package waf provides Web ACL listing, lookup, and association queries
// against the WAFv2 API.
package waf

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/wafv2"
	"github.com/aws/aws-sdk-go-v2/service/wafv2/types"
	"github.com/thirukguru/waf-perimeter/model"
)

// CloudFrontScopeRegion is where AWS evaluates the CLOUDFRONT WAF scope,
// regardless of where distributions serve from.
const CloudFrontScopeRegion = "us-east-1"

// associationResourceTypes are the WAFv2 resource types probed when resolving
// what a regional-capable Web ACL protects. ALB first; the rest best-effort
// since not every type is available in every partition.
var associationResourceTypes = []types.ResourceType{
	types.ResourceTypeApplicationLoadBalancer,
	types.ResourceTypeApiGateway,
	types.ResourceTypeAppsync,
	types.ResourceTypeCognitioUserPool,
	types.ResourceTypeAppRunnerService,
	types.ResourceTypeVerifiedAccessInstance,
}

// api is the narrow WAFv2 surface this service needs; satisfied by
// *wafv2.Client and by mocks in tests.
type api interface {
	ListWebACLs(ctx context.Context, params *wafv2.ListWebACLsInput, optFns ...func(*wafv2.Options)) (*wafv2.ListWebACLsOutput, error)
	GetWebACL(ctx context.Context, params *wafv2.GetWebACLInput, optFns ...func(*wafv2.Options)) (*wafv2.GetWebACLOutput, error)
	ListResourcesForWebACL(ctx context.Context, params *wafv2.ListResourcesForWebACLInput, optFns ...func(*wafv2.Options)) (*wafv2.ListResourcesForWebACLOutput, error)
	GetWebACLForResource(ctx context.Context, params *wafv2.GetWebACLForResourceInput, optFns ...func(*wafv2.Options)) (*wafv2.GetWebACLForResourceOutput, error)
}

// AssociationResult carries the resolved resource ARNs together with the raw
// first API response, which the auditor prints verbatim on empty results.
type AssociationResult struct {
	ResourceARNs []string
	RawResponse  string
}

// Service is the interface for Web ACL queries.
type Service interface {
	ListWebACLs(ctx context.Context, scope types.Scope) ([]types.WebACLSummary, error)
	FindWebACLByName(ctx context.Context, scope types.Scope, name string) (*types.WebACLSummary, []types.WebACLSummary, error)
	DescribeWebACL(ctx context.Context, scope types.Scope, summary types.WebACLSummary) (model.WebACLRecord, error)
	AssociatedResources(ctx context.Context, webACLARN string) (AssociationResult, error)
	WebACLForResource(ctx context.Context, resourceARN string) (*types.WebACL, error)
}

type service struct {
	client api
}

// NewService creates a new WAF service.
func NewService(cfg aws.Config) Service {
	return &service{client: wafv2.NewFromConfig(cfg)}
}

// ListWebACLs returns every Web ACL summary in the scope, following the
// NextMarker cursor (the WAFv2 API has no SDK paginator).
func (s *service) ListWebACLs(ctx context.Context, scope types.Scope) ([]types.WebACLSummary, error) {
	var acls []types.WebACLSummary
	var marker *string

	for {
		out, err := s.client.ListWebACLs(ctx, &wafv2.ListWebACLsInput{
			Scope:      scope,
			NextMarker: marker,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s web ACLs: %w", scope, err)
		}

		acls = append(acls, out.WebACLs...)

		if out.NextMarker == nil || *out.NextMarker == "" || len(out.WebACLs) == 0 {
			return acls, nil
		}
		marker = out.NextMarker
	}
}

// FindWebACLByName resolves a Web ACL by exact name match. The full listing is
// returned alongside so callers can enumerate the available names on a miss.
func (s *service) FindWebACLByName(ctx context.Context, scope types.Scope, name string) (*types.WebACLSummary, []types.WebACLSummary, error) {
	acls, err := s.ListWebACLs(ctx, scope)
	if err != nil {
		return nil, nil, err
	}

	for i := range acls {
		if aws.ToString(acls[i].Name) == name {
			return &acls[i], acls, nil
		}
	}

	return nil, acls, nil
}

// DescribeWebACL fetches rule count, capacity, and default action for one ACL.
func (s *service) DescribeWebACL(ctx context.Context, scope types.Scope, summary types.WebACLSummary) (model.WebACLRecord, error) {
	record := model.WebACLRecord{
		Name:        aws.ToString(summary.Name),
		ID:          aws.ToString(summary.Id),
		ARN:         aws.ToString(summary.ARN),
		Scope:       string(scope),
		Description: aws.ToString(summary.Description),
	}

	out, err := s.client.GetWebACL(ctx, &wafv2.GetWebACLInput{
		Scope: scope,
		Name:  summary.Name,
		Id:    summary.Id,
	})
	if err != nil {
		return record, fmt.Errorf("failed to get web ACL %s: %w", record.Name, err)
	}
	if out.WebACL == nil {
		return record, nil
	}

	record.RuleCount = len(out.WebACL.Rules)
	record.Capacity = out.WebACL.Capacity
	record.DefaultAction = defaultActionString(out.WebACL.DefaultAction)
	return record, nil
}

// AssociatedResources lists resources attached to the Web ACL across all
// resource types. An error from the initial ALB call is surfaced; the
// remaining types are probed best-effort.
func (s *service) AssociatedResources(ctx context.Context, webACLARN string) (AssociationResult, error) {
	var result AssociationResult

	first, err := s.client.ListResourcesForWebACL(ctx, &wafv2.ListResourcesForWebACLInput{
		WebACLArn:    aws.String(webACLARN),
		ResourceType: associationResourceTypes[0],
	})
	if err != nil {
		return result, err
	}

	if raw, jerr := json.MarshalIndent(first, "", "  "); jerr == nil {
		result.RawResponse = string(raw)
	}
	result.ResourceARNs = append(result.ResourceARNs, first.ResourceArns...)

	for _, rt := range associationResourceTypes[1:] {
		out, err := s.client.ListResourcesForWebACL(ctx, &wafv2.ListResourcesForWebACLInput{
			WebACLArn:    aws.String(webACLARN),
			ResourceType: rt,
		})
		if err != nil {
			// Resource type not supported in this partition or scope.
			continue
		}
		result.ResourceARNs = append(result.ResourceARNs, out.ResourceArns...)
	}

	return result, nil
}

// WebACLForResource returns the Web ACL attached to a regional resource, or
// nil when the resource is unprotected.
func (s *service) WebACLForResource(ctx context.Context, resourceARN string) (*types.WebACL, error) {
	out, err := s.client.GetWebACLForResource(ctx, &wafv2.GetWebACLForResourceInput{
		ResourceArn: aws.String(resourceARN),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get web ACL for %s: %w", resourceARN, err)
	}
	return out.WebACL, nil
}

func defaultActionString(action *types.DefaultAction) string {
	switch {
	case action == nil:
		return ""
	case action.Allow != nil:
		return "ALLOW"
	case action.Block != nil:
		return "BLOCK"
	default:
		return ""
	}
}
