// Package archive talks to cold-storage archival services through a narrow multipart upload protocol.
package archive

import (
	"context"
	"io"
)

// Client is the remote side of a multipart archive upload.
type Client interface {
	// InitiateMultipartUpload opens a new upload session and returns its id.
	InitiateMultipartUpload(ctx context.Context, params InitiateParams) (string, error)
	// UploadPart submits one part of an open session and returns the checksum the service computed for it.
	UploadPart(ctx context.Context, params UploadPartParams) (string, error)
	// CompleteMultipartUpload finalizes the session into an immutable archive.
	CompleteMultipartUpload(ctx context.Context, params CompleteParams) (Archive, error)
}

// InitiateParams ...
type InitiateParams struct {
	Vault       string
	Description string
	// PartSize is in bytes.
	PartSize int64
}

// UploadPartParams ...
type UploadPartParams struct {
	Vault    string
	UploadID string
	// Range is the wire form of [Start, End), `bytes <Start>-<End-1>/*`.
	Range string
	Start int64
	End   int64
	Body  io.ReadSeeker
	// Checksum is the hex tree hash of the part. Optional.
	Checksum string
}

// CompleteParams ...
type CompleteParams struct {
	Vault       string
	UploadID    string
	ArchiveSize int64
	// Checksum is the hex tree hash of the whole archive.
	Checksum string
}

// Archive is the result of a completed upload.
type Archive struct {
	ArchiveID string
	Location  string
	Checksum  string
}
