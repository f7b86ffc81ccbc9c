// Package albassoc resolves application load balancers and their Web ACL
// attachments for the REGIONAL WAF scope.
package albassoc

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/thirukguru/waf-perimeter/model"
	"github.com/thirukguru/waf-perimeter/service/waf"
)

// Service is the interface for ALB association queries.
type Service interface {
	ListLoadBalancers(ctx context.Context) ([]model.LoadBalancerAssociation, error)
}

type service struct {
	client elasticloadbalancingv2.DescribeLoadBalancersAPIClient
	wafSvc waf.Service
}

// NewService creates a new ALB association service.
func NewService(cfg aws.Config, wafSvc waf.Service) Service {
	return &service{
		client: elasticloadbalancingv2.NewFromConfig(cfg),
		wafSvc: wafSvc,
	}
}

// ListLoadBalancers returns every application load balancer with its Web ACL
// attachment. Network and gateway load balancers cannot carry a Web ACL and
// are skipped.
func (s *service) ListLoadBalancers(ctx context.Context) ([]model.LoadBalancerAssociation, error) {
	var albs []model.LoadBalancerAssociation

	paginator := elasticloadbalancingv2.NewDescribeLoadBalancersPaginator(s.client, &elasticloadbalancingv2.DescribeLoadBalancersInput{})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe load balancers: %w", err)
		}

		for _, lb := range page.LoadBalancers {
			if lb.Type != types.LoadBalancerTypeEnumApplication {
				continue
			}

			assoc := model.LoadBalancerAssociation{
				Name:    aws.ToString(lb.LoadBalancerName),
				ARN:     aws.ToString(lb.LoadBalancerArn),
				DNSName: aws.ToString(lb.DNSName),
				Type:    string(lb.Type),
				Scheme:  string(lb.Scheme),
			}
			if lb.State != nil {
				assoc.State = string(lb.State.Code)
			}

			acl, err := s.wafSvc.WebACLForResource(ctx, assoc.ARN)
			if err != nil {
				return nil, err
			}
			if acl != nil {
				assoc.Protected = true
				assoc.WebACLARN = aws.ToString(acl.ARN)
				assoc.WebACLName = aws.ToString(acl.Name)
			}

			albs = append(albs, assoc)
		}
	}

	return albs, nil
}
