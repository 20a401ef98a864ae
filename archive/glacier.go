package archive

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glacier"
	"github.com/bitrise-io/go-utils/v2/log"
)

// DefaultAccountID makes Glacier use the account of the signing credentials.
const DefaultAccountID = "-"

// GlacierParams ...
type GlacierParams struct {
	AWSParams
	// AccountID is the vault owner's account id. Defaults to DefaultAccountID.
	AccountID string
}

type glacierAPI interface {
	InitiateMultipartUpload(ctx context.Context, params *glacier.InitiateMultipartUploadInput, optFns ...func(*glacier.Options)) (*glacier.InitiateMultipartUploadOutput, error)
	UploadMultipartPart(ctx context.Context, params *glacier.UploadMultipartPartInput, optFns ...func(*glacier.Options)) (*glacier.UploadMultipartPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *glacier.CompleteMultipartUploadInput, optFns ...func(*glacier.Options)) (*glacier.CompleteMultipartUploadOutput, error)
}

// GlacierClient uploads archives to Amazon S3 Glacier vaults.
type GlacierClient struct {
	api       glacierAPI
	accountID string
	logger    log.Logger
}

// NewGlacierClient creates a client from the AWS default config chain, overridden by params.
func NewGlacierClient(ctx context.Context, params GlacierParams, logger log.Logger) (*GlacierClient, error) {
	cfg, err := loadAWSConfig(ctx, params.AWSParams, logger)
	if err != nil {
		return nil, fmt.Errorf("load aws credentials: %w", err)
	}

	return newGlacierClient(glacier.NewFromConfig(*cfg), params.AccountID, logger), nil
}

func newGlacierClient(api glacierAPI, accountID string, logger log.Logger) *GlacierClient {
	if accountID == "" {
		accountID = DefaultAccountID
	}
	return &GlacierClient{
		api:       api,
		accountID: accountID,
		logger:    logger,
	}
}

// InitiateMultipartUpload ...
func (c *GlacierClient) InitiateMultipartUpload(ctx context.Context, params InitiateParams) (string, error) {
	resp, err := c.api.InitiateMultipartUpload(ctx, &glacier.InitiateMultipartUploadInput{
		AccountId:          aws.String(c.accountID),
		VaultName:          aws.String(params.Vault),
		ArchiveDescription: aws.String(params.Description),
		PartSize:           aws.String(strconv.FormatInt(params.PartSize, 10)),
	})
	if err != nil {
		return "", wrapAPIError("initiate multipart upload", err)
	}

	c.logger.Debugf("Multipart upload location: %s", aws.ToString(resp.Location))

	return aws.ToString(resp.UploadId), nil
}

// UploadPart ...
func (c *GlacierClient) UploadPart(ctx context.Context, params UploadPartParams) (string, error) {
	input := &glacier.UploadMultipartPartInput{
		AccountId: aws.String(c.accountID),
		VaultName: aws.String(params.Vault),
		UploadId:  aws.String(params.UploadID),
		Range:     aws.String(params.Range),
		Body:      params.Body,
	}
	if params.Checksum != "" {
		input.Checksum = aws.String(params.Checksum)
	}

	resp, err := c.api.UploadMultipartPart(ctx, input)
	if err != nil {
		return "", wrapAPIError(fmt.Sprintf("upload part %s", params.Range), err)
	}

	return aws.ToString(resp.Checksum), nil
}

// CompleteMultipartUpload ...
func (c *GlacierClient) CompleteMultipartUpload(ctx context.Context, params CompleteParams) (Archive, error) {
	resp, err := c.api.CompleteMultipartUpload(ctx, &glacier.CompleteMultipartUploadInput{
		AccountId:   aws.String(c.accountID),
		VaultName:   aws.String(params.Vault),
		UploadId:    aws.String(params.UploadID),
		ArchiveSize: aws.String(strconv.FormatInt(params.ArchiveSize, 10)),
		Checksum:    aws.String(params.Checksum),
	})
	if err != nil {
		return Archive{}, wrapAPIError("complete multipart upload", err)
	}

	return Archive{
		ArchiveID: aws.ToString(resp.ArchiveId),
		Location:  aws.ToString(resp.Location),
		Checksum:  aws.ToString(resp.Checksum),
	}, nil
}
