// Package awsconfig provides a service for loading AWS configuration.
package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// loadSharedConfigProfile is a variable to allow mocking in tests.
var loadSharedConfigProfile = config.LoadSharedConfigProfile

// NewService creates a new AWS configuration service.
func NewService() Service {
	return &service{}
}

func (s *service) GetAWSCfg(ctx context.Context, region, profile string) (aws.Config, error) {
	// Profiles that assume a role with MFA need the token provider wired in
	// manually; LoadDefaultConfig can otherwise hand back a config that only
	// fails later with SignatureDoesNotMatch.
	if profile != "" {
		sharedCfg, err := loadSharedConfigProfile(ctx, profile)
		if err == nil && sharedCfg.RoleARN != "" && sharedCfg.MFASerial != "" {
			return s.loadConfigWithManualMFA(ctx, region, profile)
		}
	}

	var opts []func(*config.LoadOptions) error

	// Only set region if explicitly provided; otherwise use SDK defaults
	// (AWS_REGION, AWS_DEFAULT_REGION env vars, or ~/.aws/config)
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	opts = append(opts, config.WithAssumeRoleCredentialOptions(func(options *stscreds.AssumeRoleOptions) {
		options.TokenProvider = stscreds.StdinTokenProvider
	}))

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS config: %w", err)
	}

	// Retrieve credentials now so any MFA prompt happens before the spinner
	// takes over the terminal.
	if cfg.Credentials != nil {
		if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
			return aws.Config{}, fmt.Errorf("failed to retrieve credentials: %w", err)
		}
	}

	return cfg, nil
}

// loadConfigWithManualMFA constructs the configuration for a role+MFA profile
// by assuming the role through the source profile's credentials.
func (s *service) loadConfigWithManualMFA(ctx context.Context, region, profile string) (aws.Config, error) {
	sharedCfg, err := loadSharedConfigProfile(ctx, profile)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load shared config profile: %w", err)
	}

	if sharedCfg.RoleARN == "" || sharedCfg.MFASerial == "" {
		return aws.Config{}, fmt.Errorf("profile %s missing role_arn or mfa_serial", profile)
	}

	sourceProfile := sharedCfg.SourceProfileName
	if sourceProfile == "" {
		sourceProfile = "default"
	}

	// The STS client needs a region to resolve the AssumeRole endpoint.
	stsRegion := region
	if stsRegion == "" {
		stsRegion = sharedCfg.Region
	}
	if stsRegion == "" {
		stsRegion = "us-east-1"
	}

	baseCfg, err := config.LoadDefaultConfig(ctx,
		config.WithSharedConfigProfile(sourceProfile),
		config.WithRegion(stsRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load source profile config: %w", err)
	}

	stsClient := sts.NewFromConfig(baseCfg)
	provider := stscreds.NewAssumeRoleProvider(stsClient, sharedCfg.RoleARN, func(o *stscreds.AssumeRoleOptions) {
		o.SerialNumber = aws.String(sharedCfg.MFASerial)
		o.TokenProvider = stscreds.StdinTokenProvider
	})

	finalOpts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(aws.NewCredentialsCache(provider)),
	}
	if region != "" {
		finalOpts = append(finalOpts, config.WithRegion(region))
	} else if sharedCfg.Region != "" {
		finalOpts = append(finalOpts, config.WithRegion(sharedCfg.Region))
	}

	finalCfg, err := config.LoadDefaultConfig(ctx, finalOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load final config with mfa: %w", err)
	}

	if finalCfg.Credentials != nil {
		if _, err := finalCfg.Credentials.Retrieve(ctx); err != nil {
			return aws.Config{}, fmt.Errorf("failed to retrieve credentials (MFA might have failed): %w", err)
		}
	}

	return finalCfg, nil
}
