package archive

import (
	"bytes"
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3API struct {
	mock.Mock
}

func (m *mockS3API) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.CreateMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *mockS3API) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.UploadPartOutput)
	return out, args.Error(1)
}

func (m *mockS3API) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.CompleteMultipartUploadOutput)
	return out, args.Error(1)
}

func TestS3Client_UploadSequence(t *testing.T) {
	const partSize = 4

	api := new(mockS3API)
	api.On("CreateMultipartUpload", mock.Anything, mock.MatchedBy(func(in *s3.CreateMultipartUploadInput) bool {
		return aws.ToString(in.Bucket) == "backups" &&
			aws.ToString(in.Key) == "db.dump" &&
			in.StorageClass == types.StorageClassGlacier
	})).Return(&s3.CreateMultipartUploadOutput{UploadId: aws.String("s3-upload")}, nil)

	api.On("UploadPart", mock.Anything, mock.MatchedBy(func(in *s3.UploadPartInput) bool {
		return aws.ToInt32(in.PartNumber) == 1 && aws.ToInt64(in.ContentLength) == 4 && aws.ToString(in.Key) == "db.dump"
	})).Return(&s3.UploadPartOutput{ETag: aws.String(`"etag-1"`)}, nil)
	api.On("UploadPart", mock.Anything, mock.MatchedBy(func(in *s3.UploadPartInput) bool {
		return aws.ToInt32(in.PartNumber) == 2 && aws.ToInt64(in.ContentLength) == 2
	})).Return(&s3.UploadPartOutput{ETag: aws.String(`"etag-2"`)}, nil)

	api.On("CompleteMultipartUpload", mock.Anything, mock.MatchedBy(func(in *s3.CompleteMultipartUploadInput) bool {
		parts := in.MultipartUpload.Parts
		return len(parts) == 2 &&
			aws.ToString(parts[0].ETag) == `"etag-1"` && aws.ToInt32(parts[0].PartNumber) == 1 &&
			aws.ToString(parts[1].ETag) == `"etag-2"` && aws.ToInt32(parts[1].PartNumber) == 2
	})).Return(&s3.CompleteMultipartUploadOutput{
		Key:       aws.String("db.dump"),
		VersionId: aws.String("v7"),
		Location:  aws.String("https://backups.s3.amazonaws.com/db.dump"),
	}, nil)

	client := newS3Client(api, string(types.StorageClassGlacier), log.NewLogger())
	ctx := context.Background()

	uploadID, err := client.InitiateMultipartUpload(ctx, InitiateParams{Vault: "backups", Description: "db.dump", PartSize: partSize})
	require.NoError(t, err)
	assert.Equal(t, "s3-upload", uploadID)

	etag, err := client.UploadPart(ctx, UploadPartParams{Vault: "backups", UploadID: uploadID, Range: "bytes 0-3/*", Start: 0, End: 4, Body: bytes.NewReader([]byte("abcd"))})
	require.NoError(t, err)
	assert.Equal(t, `"etag-1"`, etag)

	_, err = client.UploadPart(ctx, UploadPartParams{Vault: "backups", UploadID: uploadID, Range: "bytes 4-5/*", Start: 4, End: 6, Body: bytes.NewReader([]byte("ef"))})
	require.NoError(t, err)

	archive, err := client.CompleteMultipartUpload(ctx, CompleteParams{Vault: "backups", UploadID: uploadID, ArchiveSize: 6, Checksum: "treehash"})
	require.NoError(t, err)
	assert.Equal(t, Archive{
		ArchiveID: "db.dump?versionId=v7",
		Location:  "https://backups.s3.amazonaws.com/db.dump",
		Checksum:  "treehash",
	}, archive)

	api.AssertExpectations(t)
}

func TestS3Client_DefaultStorageClass(t *testing.T) {
	client := newS3Client(new(mockS3API), "", log.NewLogger())

	assert.Equal(t, types.StorageClassDeepArchive, client.storageClass)
}

func TestS3Client_UnknownUpload(t *testing.T) {
	client := newS3Client(new(mockS3API), "", log.NewLogger())
	ctx := context.Background()

	_, err := client.UploadPart(ctx, UploadPartParams{UploadID: "nope", Range: "bytes 0-0/*", End: 1, Body: bytes.NewReader([]byte{0})})
	assert.ErrorIs(t, err, ErrUploadNotFound)

	_, err = client.CompleteMultipartUpload(ctx, CompleteParams{UploadID: "nope"})
	assert.ErrorIs(t, err, ErrUploadNotFound)
}

func TestS3Client_MisalignedPart(t *testing.T) {
	api := new(mockS3API)
	api.On("CreateMultipartUpload", mock.Anything, mock.Anything).Return(&s3.CreateMultipartUploadOutput{UploadId: aws.String("u")}, nil)

	client := newS3Client(api, "", log.NewLogger())
	ctx := context.Background()

	uploadID, err := client.InitiateMultipartUpload(ctx, InitiateParams{Vault: "b", Description: "k", PartSize: 4})
	require.NoError(t, err)

	_, err = client.UploadPart(ctx, UploadPartParams{Vault: "b", UploadID: uploadID, Range: "bytes 3-5/*", Start: 3, End: 6, Body: bytes.NewReader([]byte("abc"))})
	assert.ErrorIs(t, err, ErrInvalidRange)
	api.AssertNotCalled(t, "UploadPart", mock.Anything, mock.Anything)
}
