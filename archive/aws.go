package archive

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/bitrise-io/go-utils/v2/log"
)

// AWSParams configures access to AWS. Empty fields fall back to the SDK's default chain.
type AWSParams struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func loadAWSConfig(ctx context.Context, params AWSParams, logger log.Logger) (*aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if params.Region != "" {
		opts = append(opts, config.WithRegion(params.Region))
	}

	if params.AccessKeyID != "" && params.SecretAccessKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(params.AccessKeyID, params.SecretAccessKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}

	if cfg.Region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}
	logger.Debugf("Using AWS region %s", cfg.Region)

	return &cfg, nil
}
