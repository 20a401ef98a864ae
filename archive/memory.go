package archive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/bitrise-io/go-glacier-upload/treehash"
	"github.com/google/uuid"
)

type memoryPart struct {
	start, end int64
	leaves     [][]byte
}

type memoryUpload struct {
	vault       string
	description string
	partSize    int64
	parts       map[int64]memoryPart
}

// MemoryClient is an in-process archival service. It applies the same checks Glacier does to a
// multipart upload (aligned part ranges, contiguous coverage, tree hash of the assembled
// archive) without storing the payload itself.
type MemoryClient struct {
	mu       sync.Mutex
	uploads  map[string]*memoryUpload
	archives map[string]Archive
}

// NewMemoryClient ...
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		uploads:  map[string]*memoryUpload{},
		archives: map[string]Archive{},
	}
}

// InitiateMultipartUpload ...
func (c *MemoryClient) InitiateMultipartUpload(_ context.Context, params InitiateParams) (string, error) {
	if params.Vault == "" {
		return "", fmt.Errorf("initiate multipart upload: vault name must not be empty")
	}
	if params.PartSize <= 0 || params.PartSize%treehash.LeafSize != 0 {
		return "", fmt.Errorf("initiate multipart upload: %w: %d is not a positive multiple of 1 MiB", ErrInvalidPartSize, params.PartSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	uploadID := uuid.NewString()
	c.uploads[uploadID] = &memoryUpload{
		vault:       params.Vault,
		description: params.Description,
		partSize:    params.PartSize,
		parts:       map[int64]memoryPart{},
	}
	return uploadID, nil
}

// UploadPart ...
func (c *MemoryClient) UploadPart(_ context.Context, params UploadPartParams) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	upload, err := c.upload(params.Vault, params.UploadID)
	if err != nil {
		return "", fmt.Errorf("upload part %s: %w", params.Range, err)
	}

	var first, last int64
	if _, err := fmt.Sscanf(params.Range, "bytes %d-%d/*", &first, &last); err != nil {
		return "", fmt.Errorf("upload part %s: %w: %s", params.Range, ErrInvalidRange, err)
	}
	if first != params.Start || last != params.End-1 || first > last {
		return "", fmt.Errorf("upload part %s: %w: does not match offsets %d-%d", params.Range, ErrInvalidRange, params.Start, params.End)
	}
	if first%upload.partSize != 0 || last-first+1 > upload.partSize {
		return "", fmt.Errorf("upload part %s: %w: not aligned to part size %d", params.Range, ErrInvalidRange, upload.partSize)
	}

	body, err := io.ReadAll(params.Body)
	if err != nil {
		return "", fmt.Errorf("upload part %s: read body: %w", params.Range, err)
	}
	if int64(len(body)) != last-first+1 {
		return "", fmt.Errorf("upload part %s: %w: body has %d bytes", params.Range, ErrInvalidRange, len(body))
	}

	leaves := treehash.LeafHashes(body)
	checksum := hex.EncodeToString(treehash.Combine(leaves))
	if params.Checksum != "" && params.Checksum != checksum {
		return "", fmt.Errorf("upload part %s: %w: declared %s, computed %s", params.Range, ErrChecksumMismatch, params.Checksum, checksum)
	}

	upload.parts[first] = memoryPart{start: first, end: last + 1, leaves: leaves}

	return checksum, nil
}

// CompleteMultipartUpload ...
func (c *MemoryClient) CompleteMultipartUpload(_ context.Context, params CompleteParams) (Archive, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	upload, err := c.upload(params.Vault, params.UploadID)
	if err != nil {
		return Archive{}, fmt.Errorf("complete multipart upload: %w", err)
	}

	parts := make([]memoryPart, 0, len(upload.parts))
	for _, part := range upload.parts {
		parts = append(parts, part)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].start < parts[j].start })

	var offset int64
	var leaves [][]byte
	for i, part := range parts {
		if part.start != offset {
			return Archive{}, fmt.Errorf("complete multipart upload: %w: missing bytes %d-%d", ErrInvalidRange, offset, part.start-1)
		}
		if i < len(parts)-1 && part.end-part.start != upload.partSize {
			return Archive{}, fmt.Errorf("complete multipart upload: %w: only the last part may be shorter than the part size", ErrInvalidRange)
		}
		leaves = append(leaves, part.leaves...)
		offset = part.end
	}
	if offset != params.ArchiveSize {
		return Archive{}, fmt.Errorf("complete multipart upload: %w: parts cover %d bytes, archive size is %d", ErrInvalidRange, offset, params.ArchiveSize)
	}

	checksum := hex.EncodeToString(treehash.Combine(leaves))
	if checksum != params.Checksum {
		return Archive{}, fmt.Errorf("complete multipart upload: %w: declared %s, computed %s", ErrChecksumMismatch, params.Checksum, checksum)
	}

	archiveID := uuid.NewString()
	archive := Archive{
		ArchiveID: archiveID,
		Location:  fmt.Sprintf("/%s/vaults/%s/archives/%s", DefaultAccountID, upload.vault, archiveID),
		Checksum:  checksum,
	}
	c.archives[archiveID] = archive
	delete(c.uploads, params.UploadID)

	return archive, nil
}

// OpenUploads returns the number of sessions that were initiated but not completed.
func (c *MemoryClient) OpenUploads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.uploads)
}

// Archive returns a completed archive by id.
func (c *MemoryClient) Archive(archiveID string) (Archive, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	archive, ok := c.archives[archiveID]
	return archive, ok
}

func (c *MemoryClient) upload(vault, uploadID string) (*memoryUpload, error) {
	upload, ok := c.uploads[uploadID]
	if !ok || upload.vault != vault {
		return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, uploadID)
	}
	return upload, nil
}
