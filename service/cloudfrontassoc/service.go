// Package cloudfrontassoc resolves CloudFront distributions and their Web ACL
// attachments. CloudFront reports the attached ACL on the distribution
// summary, so no WAFv2 round trip is needed per distribution.
package cloudfrontassoc

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/thirukguru/waf-perimeter/model"
)

// api is the narrow CloudFront surface this service needs.
type api interface {
	ListDistributions(ctx context.Context, params *cloudfront.ListDistributionsInput, optFns ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error)
	ListDistributionsByWebACLId(ctx context.Context, params *cloudfront.ListDistributionsByWebACLIdInput, optFns ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsByWebACLIdOutput, error)
}

// Service is the interface for CloudFront association queries.
type Service interface {
	ListDistributions(ctx context.Context) ([]model.DistributionAssociation, error)
	DistributionsForWebACL(ctx context.Context, webACLARN string) ([]model.DistributionAssociation, error)
}

type service struct {
	client api
}

// NewService creates a new CloudFront association service.
func NewService(cfg aws.Config) Service {
	return &service{client: cloudfront.NewFromConfig(cfg)}
}

// ListDistributions returns every distribution with its Web ACL attachment,
// following the marker cursor manually so the fake client in tests can drive
// pagination.
func (s *service) ListDistributions(ctx context.Context) ([]model.DistributionAssociation, error) {
	var dists []model.DistributionAssociation
	var marker *string

	for {
		out, err := s.client.ListDistributions(ctx, &cloudfront.ListDistributionsInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("failed to list distributions: %w", err)
		}
		if out.DistributionList == nil {
			return dists, nil
		}

		for _, item := range out.DistributionList.Items {
			webACLID := aws.ToString(item.WebACLId)
			dists = append(dists, model.DistributionAssociation{
				DistributionID: aws.ToString(item.Id),
				DomainName:     aws.ToString(item.DomainName),
				Status:         aws.ToString(item.Status),
				Enabled:        aws.ToBool(item.Enabled),
				WebACLID:       webACLID,
				Protected:      webACLID != "",
			})
		}

		if !aws.ToBool(out.DistributionList.IsTruncated) || out.DistributionList.NextMarker == nil {
			return dists, nil
		}
		marker = out.DistributionList.NextMarker
	}
}

// DistributionsForWebACL returns the distributions attached to the given Web
// ACL. CloudFront expects the wafv2 ARN as the "ID" for this call.
func (s *service) DistributionsForWebACL(ctx context.Context, webACLARN string) ([]model.DistributionAssociation, error) {
	out, err := s.client.ListDistributionsByWebACLId(ctx, &cloudfront.ListDistributionsByWebACLIdInput{
		WebACLId: aws.String(webACLARN),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list distributions for web ACL: %w", err)
	}

	var dists []model.DistributionAssociation
	if out.DistributionList == nil {
		return dists, nil
	}
	for _, item := range out.DistributionList.Items {
		dists = append(dists, model.DistributionAssociation{
			DistributionID: aws.ToString(item.Id),
			DomainName:     aws.ToString(item.DomainName),
			Status:         aws.ToString(item.Status),
			Enabled:        aws.ToBool(item.Enabled),
			WebACLID:       webACLARN,
			Protected:      true,
		})
	}
	return dists, nil
}
