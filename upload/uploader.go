// Package upload drives a multipart archive upload: it opens a session, submits the parts of a
// file one by one in ascending order and completes the session with the file's tree hash.
package upload

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bitrise-io/go-glacier-upload/archive"
	"github.com/bitrise-io/go-glacier-upload/chunker"
	"github.com/bitrise-io/go-glacier-upload/internal"
	"github.com/bitrise-io/go-glacier-upload/treehash"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// ErrRangeMismatch is returned when a part read from the file does not sit at the offsets the
// upload protocol expects for its index.
var ErrRangeMismatch = errors.New("part range mismatch")

// Input ...
type Input struct {
	FilePath    string
	PartSizeMiB int
	VaultName   string
}

// Result describes a completed upload.
type Result struct {
	Session     Session
	Archive     archive.Archive
	TreeHash    string
	ArchiveSize int64
	PartCount   int
	// UploadedAt is the time the first part started uploading.
	UploadedAt time.Time
	Duration   time.Duration
}

// Uploader runs multipart uploads against an archive.Client. Calls to the client are strictly
// sequential and nothing is retried: the first error ends the upload and the remote session is
// left open.
type Uploader struct {
	client  archive.Client
	logger  log.Logger
	osProxy internal.OsProxy
	now     func() time.Time
	stats   *Stats
	state   State
}

// NewUploader ...
func NewUploader(client archive.Client, logger log.Logger, osProxy internal.OsProxy) *Uploader {
	if osProxy == nil {
		osProxy = internal.RealOS{}
	}
	return &Uploader{
		client:  client,
		logger:  logger,
		osProxy: osProxy,
		now:     time.Now,
		stats:   NewStats(),
	}
}

// State returns the state of the last upload.
func (u *Uploader) State() State {
	return u.state
}

// Stats returns the part upload statistics of the last upload.
func (u *Uploader) Stats() *Stats {
	return u.stats
}

// Upload uploads the file at input.FilePath to input.VaultName.
func (u *Uploader) Upload(ctx context.Context, input Input) (*Result, error) {
	u.state = NotStarted
	u.stats = NewStats()

	result, err := u.upload(ctx, input)
	if err != nil {
		u.logger.Debugf("Upload failed in state: %s", u.state)
		u.state = Failed
		return nil, err
	}
	u.state = Completed

	return result, nil
}

func (u *Uploader) upload(ctx context.Context, input Input) (*Result, error) {
	startTime := u.now()

	seq, err := chunker.Open(u.osProxy, input.FilePath, input.PartSizeMiB)
	if err != nil {
		return nil, err
	}
	defer seq.Close() //nolint:errcheck

	numParts := seq.NumParts()
	u.logger.Printf("Splitting %s into %d parts.", input.FilePath, numParts)
	u.logger.Debugf("Archive size: %s, part size: %s",
		units.HumanSizeWithPrecision(float64(seq.Size()), 3),
		units.BytesSize(float64(seq.PartSize())))

	session := Session{
		VaultName:   input.VaultName,
		PartSize:    seq.PartSize(),
		Description: filepath.Base(input.FilePath),
	}
	session.UploadID, err = u.client.InitiateMultipartUpload(ctx, archive.InitiateParams{
		Vault:       session.VaultName,
		Description: session.Description,
		PartSize:    session.PartSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initiate multipart upload: %w", err)
	}
	u.state = Initiated
	u.logger.Debugf("Upload ID: %s", session.UploadID)

	uploadedAt := u.now()
	fileHash := treehash.New()

	for {
		part, err := seq.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		start, end := chunker.ExpectedRange(part.Index, session.PartSize, seq.Size())
		if part.Start != start || part.End != end {
			return nil, fmt.Errorf("%w: part %d covers %d-%d, expected %d-%d", ErrRangeMismatch, part.Index, part.Start, part.End, start, end)
		}

		fileHash.Write(part.Data) //nolint:errcheck

		checksum, err := u.uploadPart(ctx, session, part, numParts)
		if err != nil {
			return nil, fmt.Errorf("failed to upload part %d/%d: %w", part.Index, numParts, err)
		}
		u.logger.Printf("Uploaded Part %d/%d - Checksum: %s", part.Index, numParts, checksum)
	}

	treeHash := hex.EncodeToString(fileHash.Sum(nil))
	u.logger.Printf("File Tree Hash: %s", treeHash)
	u.logger.Debugf("Uploaded %s in %s (%s/s)",
		units.BytesSize(float64(u.stats.UploadedBytes())),
		u.stats.TotalDuration().Round(time.Millisecond),
		units.BytesSize(u.stats.BytesPerSecond()))

	completed, err := u.client.CompleteMultipartUpload(ctx, archive.CompleteParams{
		Vault:       session.VaultName,
		UploadID:    session.UploadID,
		ArchiveSize: seq.Size(),
		Checksum:    treeHash,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	u.logger.Donef("Multipart upload completed.")
	u.logger.Printf("Archive ID: %s", completed.ArchiveID)
	u.logger.Printf("Checksum: %s", treeHash)
	u.logger.Printf("Location in S3 Glacier: %s", completed.Location)

	return &Result{
		Session:     session,
		Archive:     completed,
		TreeHash:    treeHash,
		ArchiveSize: seq.Size(),
		PartCount:   int(u.stats.FinishedCount()),
		UploadedAt:  uploadedAt,
		Duration:    u.now().Sub(startTime),
	}, nil
}

func (u *Uploader) uploadPart(ctx context.Context, session Session, part *chunker.Part, numParts int) (string, error) {
	u.state = PartsInFlight
	u.logger.Debugf("Uploading part %d/%d (%s) [finished=%d] [avg=%v]",
		part.Index, numParts, part.Range(), u.stats.FinishedCount(), u.stats.Average().Round(time.Millisecond))

	start := u.now()
	checksum, err := u.client.UploadPart(ctx, archive.UploadPartParams{
		Vault:    session.VaultName,
		UploadID: session.UploadID,
		Range:    part.Range(),
		Start:    part.Start,
		End:      part.End,
		Body:     bytes.NewReader(part.Data),
		Checksum: treehash.OfBytes(part.Data),
	})
	if err != nil {
		return "", err
	}
	u.stats.Update(u.now().Sub(start), part.Size())

	return checksum, nil
}
