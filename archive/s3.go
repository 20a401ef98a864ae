package archive

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bitrise-io/go-utils/v2/log"
)

// DefaultStorageClass is the S3 storage class archives are written with unless configured otherwise.
const DefaultStorageClass = types.StorageClassDeepArchive

// S3Params ...
type S3Params struct {
	AWSParams
	// StorageClass defaults to DefaultStorageClass.
	StorageClass string
}

type s3API interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
}

type s3Upload struct {
	key      string
	partSize int64
	parts    []types.CompletedPart
}

// S3Client stores archives as S3 objects in a cold storage class. The vault name is the bucket
// and the archive description is the object key.
//
// S3 identifies parts by number and finalizes them by ETag, so the client keeps the ETags of
// the parts it uploaded until the upload is completed.
type S3Client struct {
	api          s3API
	storageClass types.StorageClass
	logger       log.Logger
	uploads      map[string]*s3Upload
}

// NewS3Client creates a client from the AWS default config chain, overridden by params.
func NewS3Client(ctx context.Context, params S3Params, logger log.Logger) (*S3Client, error) {
	cfg, err := loadAWSConfig(ctx, params.AWSParams, logger)
	if err != nil {
		return nil, fmt.Errorf("load aws credentials: %w", err)
	}

	return newS3Client(s3.NewFromConfig(*cfg), params.StorageClass, logger), nil
}

func newS3Client(api s3API, storageClass string, logger log.Logger) *S3Client {
	class := DefaultStorageClass
	if storageClass != "" {
		class = types.StorageClass(storageClass)
	}
	return &S3Client{
		api:          api,
		storageClass: class,
		logger:       logger,
		uploads:      map[string]*s3Upload{},
	}
}

// InitiateMultipartUpload ...
func (c *S3Client) InitiateMultipartUpload(ctx context.Context, params InitiateParams) (string, error) {
	if params.PartSize <= 0 {
		return "", fmt.Errorf("initiate multipart upload: %w: %d", ErrInvalidPartSize, params.PartSize)
	}

	resp, err := c.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:       aws.String(params.Vault),
		Key:          aws.String(params.Description),
		StorageClass: c.storageClass,
	})
	if err != nil {
		return "", wrapAPIError("initiate multipart upload", err)
	}

	uploadID := aws.ToString(resp.UploadId)
	c.uploads[uploadID] = &s3Upload{
		key:      params.Description,
		partSize: params.PartSize,
	}
	c.logger.Debugf("Created multipart upload for s3://%s/%s (storage class: %s)", params.Vault, params.Description, c.storageClass)

	return uploadID, nil
}

// UploadPart ...
func (c *S3Client) UploadPart(ctx context.Context, params UploadPartParams) (string, error) {
	upload, ok := c.uploads[params.UploadID]
	if !ok {
		return "", fmt.Errorf("upload part %s: %w: %s", params.Range, ErrUploadNotFound, params.UploadID)
	}
	if params.Start%upload.partSize != 0 {
		return "", fmt.Errorf("upload part %s: %w: start is not aligned to the part size", params.Range, ErrInvalidRange)
	}
	partNumber := int32(params.Start/upload.partSize) + 1

	resp, err := c.api.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(params.Vault),
		Key:           aws.String(upload.key),
		UploadId:      aws.String(params.UploadID),
		PartNumber:    aws.Int32(partNumber),
		ContentLength: aws.Int64(params.End - params.Start),
		Body:          params.Body,
	})
	if err != nil {
		return "", wrapAPIError(fmt.Sprintf("upload part %s", params.Range), err)
	}

	upload.parts = append(upload.parts, types.CompletedPart{
		ETag:       resp.ETag,
		PartNumber: aws.Int32(partNumber),
	})

	return aws.ToString(resp.ETag), nil
}

// CompleteMultipartUpload ...
func (c *S3Client) CompleteMultipartUpload(ctx context.Context, params CompleteParams) (Archive, error) {
	upload, ok := c.uploads[params.UploadID]
	if !ok {
		return Archive{}, fmt.Errorf("complete multipart upload: %w: %s", ErrUploadNotFound, params.UploadID)
	}

	resp, err := c.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(params.Vault),
		Key:      aws.String(upload.key),
		UploadId: aws.String(params.UploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: upload.parts,
		},
	})
	if err != nil {
		return Archive{}, wrapAPIError("complete multipart upload", err)
	}
	delete(c.uploads, params.UploadID)

	archiveID := aws.ToString(resp.Key)
	if resp.VersionId != nil {
		archiveID = fmt.Sprintf("%s?versionId=%s", archiveID, aws.ToString(resp.VersionId))
	}

	return Archive{
		ArchiveID: archiveID,
		Location:  aws.ToString(resp.Location),
		Checksum:  params.Checksum,
	}, nil
}
