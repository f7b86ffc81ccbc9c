package waf

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/wafv2"
	"github.com/aws/aws-sdk-go-v2/service/wafv2/types"
)

type fakeWAF struct {
	pages       [][]types.WebACLSummary
	listCalls   int
	aclRules    int
	aclCapacity int64
	allow       bool
	resources   map[types.ResourceType][]string
	resourceErr map[types.ResourceType]error
}

func (f *fakeWAF) ListWebACLs(ctx context.Context, params *wafv2.ListWebACLsInput, optFns ...func(*wafv2.Options)) (*wafv2.ListWebACLsOutput, error) {
	if f.listCalls >= len(f.pages) {
		return &wafv2.ListWebACLsOutput{}, nil
	}
	page := f.pages[f.listCalls]
	f.listCalls++

	out := &wafv2.ListWebACLsOutput{WebACLs: page}
	if f.listCalls < len(f.pages) {
		out.NextMarker = aws.String("next")
	}
	return out, nil
}

func (f *fakeWAF) GetWebACL(ctx context.Context, params *wafv2.GetWebACLInput, optFns ...func(*wafv2.Options)) (*wafv2.GetWebACLOutput, error) {
	acl := &types.WebACL{
		Name:     params.Name,
		Id:       params.Id,
		Capacity: f.aclCapacity,
		Rules:    make([]types.Rule, f.aclRules),
	}
	if f.allow {
		acl.DefaultAction = &types.DefaultAction{Allow: &types.AllowAction{}}
	} else {
		acl.DefaultAction = &types.DefaultAction{Block: &types.BlockAction{}}
	}
	return &wafv2.GetWebACLOutput{WebACL: acl}, nil
}

func (f *fakeWAF) ListResourcesForWebACL(ctx context.Context, params *wafv2.ListResourcesForWebACLInput, optFns ...func(*wafv2.Options)) (*wafv2.ListResourcesForWebACLOutput, error) {
	if err := f.resourceErr[params.ResourceType]; err != nil {
		return nil, err
	}
	return &wafv2.ListResourcesForWebACLOutput{ResourceArns: f.resources[params.ResourceType]}, nil
}

func (f *fakeWAF) GetWebACLForResource(ctx context.Context, params *wafv2.GetWebACLForResourceInput, optFns ...func(*wafv2.Options)) (*wafv2.GetWebACLForResourceOutput, error) {
	return &wafv2.GetWebACLForResourceOutput{}, nil
}

func summary(name, id string) types.WebACLSummary {
	return types.WebACLSummary{
		Name: aws.String(name),
		Id:   aws.String(id),
		ARN:  aws.String("arn:aws:wafv2:us-east-1:123456789012:global/webacl/" + name + "/" + id),
	}
}

func TestListWebACLsFollowsMarker(t *testing.T) {
	fake := &fakeWAF{pages: [][]types.WebACLSummary{
		{summary("acl-a", "1"), summary("acl-b", "2")},
		{summary("acl-c", "3")},
	}}
	s := &service{client: fake}

	acls, err := s.ListWebACLs(context.Background(), types.ScopeCloudfront)
	if err != nil {
		t.Fatalf("ListWebACLs: %v", err)
	}
	if len(acls) != 3 {
		t.Errorf("got %d ACLs, want 3", len(acls))
	}
	if fake.listCalls != 2 {
		t.Errorf("list calls = %d, want 2", fake.listCalls)
	}
}

func TestFindWebACLByNameExactMatchOnly(t *testing.T) {
	fake := &fakeWAF{pages: [][]types.WebACLSummary{
		{summary("prod-waf", "1"), summary("prod-waf-v2", "2")},
	}}
	s := &service{client: fake}

	found, all, err := s.FindWebACLByName(context.Background(), types.ScopeCloudfront, "prod-waf")
	if err != nil {
		t.Fatalf("FindWebACLByName: %v", err)
	}
	if found == nil || aws.ToString(found.Id) != "1" {
		t.Errorf("found = %v, want id 1", found)
	}
	if len(all) != 2 {
		t.Errorf("all = %d entries, want 2", len(all))
	}

	fake.listCalls = 0
	found, all, err = s.FindWebACLByName(context.Background(), types.ScopeCloudfront, "prod")
	if err != nil {
		t.Fatalf("FindWebACLByName: %v", err)
	}
	if found != nil {
		t.Error("substring must not match; exact name only")
	}
	if len(all) != 2 {
		t.Error("listing should still be returned on a miss")
	}
}

func TestDescribeWebACL(t *testing.T) {
	fake := &fakeWAF{aclRules: 4, aclCapacity: 700, allow: true}
	s := &service{client: fake}

	record, err := s.DescribeWebACL(context.Background(), types.ScopeCloudfront, summary("prod-waf", "1"))
	if err != nil {
		t.Fatalf("DescribeWebACL: %v", err)
	}
	if record.RuleCount != 4 || record.Capacity != 700 || record.DefaultAction != "ALLOW" {
		t.Errorf("record = %+v", record)
	}
}

func TestAssociatedResourcesFirstCallErrorSurfaces(t *testing.T) {
	fake := &fakeWAF{
		resourceErr: map[types.ResourceType]error{
			types.ResourceTypeApplicationLoadBalancer: errors.New("AccessDeniedException"),
		},
	}
	s := &service{client: fake}

	if _, err := s.AssociatedResources(context.Background(), "arn:target"); err == nil {
		t.Error("expected the initial ALB listing error to surface")
	}
}

func TestAssociatedResourcesToleratesUnsupportedTypes(t *testing.T) {
	fake := &fakeWAF{
		resources: map[types.ResourceType][]string{
			types.ResourceTypeApplicationLoadBalancer: {"arn:alb-1"},
			types.ResourceTypeApiGateway:              {"arn:api-1"},
		},
		resourceErr: map[types.ResourceType]error{
			types.ResourceTypeAppRunnerService: errors.New("WAFInvalidParameterException"),
		},
	}
	s := &service{client: fake}

	result, err := s.AssociatedResources(context.Background(), "arn:target")
	if err != nil {
		t.Fatalf("AssociatedResources: %v", err)
	}
	if len(result.ResourceARNs) != 2 {
		t.Errorf("resources = %v, want 2 entries", result.ResourceARNs)
	}
	if result.RawResponse == "" {
		t.Error("raw first response should be captured for the zero-result path")
	}
}
