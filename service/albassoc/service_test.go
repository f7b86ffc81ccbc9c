package albassoc

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	waftypes "github.com/aws/aws-sdk-go-v2/service/wafv2/types"
	"github.com/thirukguru/waf-perimeter/model"
	"github.com/thirukguru/waf-perimeter/service/waf"
)

type fakeELB struct {
	lbs []elbtypes.LoadBalancer
}

func (f *fakeELB) DescribeLoadBalancers(ctx context.Context, params *elasticloadbalancingv2.DescribeLoadBalancersInput, optFns ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeLoadBalancersOutput, error) {
	return &elasticloadbalancingv2.DescribeLoadBalancersOutput{LoadBalancers: f.lbs}, nil
}

type fakeWAF struct {
	aclsByResource map[string]*waftypes.WebACL
}

func (f *fakeWAF) ListWebACLs(ctx context.Context, scope waftypes.Scope) ([]waftypes.WebACLSummary, error) {
	return nil, nil
}

func (f *fakeWAF) FindWebACLByName(ctx context.Context, scope waftypes.Scope, name string) (*waftypes.WebACLSummary, []waftypes.WebACLSummary, error) {
	return nil, nil, nil
}

func (f *fakeWAF) DescribeWebACL(ctx context.Context, scope waftypes.Scope, summary waftypes.WebACLSummary) (model.WebACLRecord, error) {
	return model.WebACLRecord{}, nil
}

func (f *fakeWAF) AssociatedResources(ctx context.Context, webACLARN string) (waf.AssociationResult, error) {
	return waf.AssociationResult{}, nil
}

func (f *fakeWAF) WebACLForResource(ctx context.Context, resourceARN string) (*waftypes.WebACL, error) {
	return f.aclsByResource[resourceARN], nil
}

func lb(name string, kind elbtypes.LoadBalancerTypeEnum) elbtypes.LoadBalancer {
	return elbtypes.LoadBalancer{
		LoadBalancerName: aws.String(name),
		LoadBalancerArn:  aws.String("arn:lb/" + name),
		DNSName:          aws.String(name + ".elb.amazonaws.com"),
		Type:             kind,
		Scheme:           elbtypes.LoadBalancerSchemeEnumInternetFacing,
		State:            &elbtypes.LoadBalancerState{Code: elbtypes.LoadBalancerStateEnumActive},
	}
}

func TestListLoadBalancersSkipsNonApplication(t *testing.T) {
	elb := &fakeELB{lbs: []elbtypes.LoadBalancer{
		lb("app-1", elbtypes.LoadBalancerTypeEnumApplication),
		lb("net-1", elbtypes.LoadBalancerTypeEnumNetwork),
	}}
	s := &service{client: elb, wafSvc: &fakeWAF{}}

	albs, err := s.ListLoadBalancers(context.Background())
	if err != nil {
		t.Fatalf("ListLoadBalancers: %v", err)
	}
	if len(albs) != 1 || albs[0].Name != "app-1" {
		t.Errorf("albs = %+v, want only app-1", albs)
	}
}

func TestListLoadBalancersMarksProtection(t *testing.T) {
	elb := &fakeELB{lbs: []elbtypes.LoadBalancer{
		lb("app-protected", elbtypes.LoadBalancerTypeEnumApplication),
		lb("app-naked", elbtypes.LoadBalancerTypeEnumApplication),
	}}
	wafSvc := &fakeWAF{aclsByResource: map[string]*waftypes.WebACL{
		"arn:lb/app-protected": {
			Name: aws.String("regional-waf"),
			ARN:  aws.String("arn:aws:wafv2:eu-west-1:1:regional/webacl/regional-waf/xyz"),
		},
	}}
	s := &service{client: elb, wafSvc: wafSvc}

	albs, err := s.ListLoadBalancers(context.Background())
	if err != nil {
		t.Fatalf("ListLoadBalancers: %v", err)
	}
	if len(albs) != 2 {
		t.Fatalf("got %d ALBs, want 2", len(albs))
	}
	if !albs[0].Protected || albs[0].WebACLName != "regional-waf" {
		t.Errorf("protected ALB wrong: %+v", albs[0])
	}
	if albs[1].Protected {
		t.Errorf("unprotected ALB marked protected: %+v", albs[1])
	}
}
