// Package chunker splits a file into fixed-size upload parts.
package chunker

import (
	"errors"
	"fmt"
	"io"

	"github.com/bitrise-io/go-glacier-upload/internal"
)

// MiB is the unit part sizes are configured in.
const MiB = 1024 * 1024

// ErrInvalidPartSize is returned when the part size is not positive.
var ErrInvalidPartSize = errors.New("part size should be a positive value")

// Part is a contiguous byte range of the source file.
type Part struct {
	// Index is 1-based.
	Index int
	// Start is the offset of the first byte, inclusive.
	Start int64
	// End is the offset after the last byte, exclusive.
	End  int64
	Data []byte
}

// Size returns the number of bytes in the part.
func (p Part) Size() int64 {
	return p.End - p.Start
}

// Range renders the part's byte range the way the archival API expects it: `bytes <first>-<last>/*`.
func (p Part) Range() string {
	return fmt.Sprintf("bytes %d-%d/*", p.Start, p.End-1)
}

// PartSizeBytes converts a part size given in MiB to bytes.
func PartSizeBytes(mib int) int64 {
	return int64(mib) * MiB
}

// NumParts returns how many parts a file of fileSize bytes is split into.
func NumParts(fileSize, partSize int64) int {
	if partSize <= 0 || fileSize <= 0 {
		return 0
	}
	return int((fileSize + partSize - 1) / partSize)
}

// ExpectedRange returns the [start, end) offsets of the part with the given 1-based index.
func ExpectedRange(index int, partSize, fileSize int64) (int64, int64) {
	start := int64(index-1) * partSize
	end := int64(index) * partSize
	if end > fileSize {
		end = fileSize
	}
	return start, end
}

// Sequence is a lazy, finite and non-restartable sequence of parts.
// Only one part is held in memory at a time.
type Sequence struct {
	r        io.Reader
	closer   io.Closer
	size     int64
	partSize int64
	offset   int64
	index    int
	done     bool
}

// Open starts a sequence over the file at path.
func Open(osProxy internal.OsProxy, path string, partSizeMiB int) (*Sequence, error) {
	if partSizeMiB <= 0 {
		return nil, ErrInvalidPartSize
	}

	file, err := osProxy.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, fmt.Errorf("stat file: %w", err)
	}

	seq := New(file, info.Size(), PartSizeBytes(partSizeMiB))
	seq.closer = file
	return seq, nil
}

// New starts a sequence over r, which is expected to hold size bytes. partSize is in bytes.
func New(r io.Reader, size, partSize int64) *Sequence {
	return &Sequence{
		r:        r,
		size:     size,
		partSize: partSize,
	}
}

// Next returns the next part. After the last part it returns io.EOF.
func (s *Sequence) Next() (*Part, error) {
	if s.done {
		return nil, io.EOF
	}
	if s.partSize <= 0 {
		return nil, ErrInvalidPartSize
	}

	buf := make([]byte, s.partSize)
	n, err := io.ReadFull(s.r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read part %d: %w", s.index+1, err)
	}
	if n == 0 {
		s.done = true
		return nil, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		// a short read is only ever the final part
		s.done = true
	}

	s.index++
	part := &Part{
		Index: s.index,
		Start: s.offset,
		End:   s.offset + int64(n),
		Data:  buf[:n],
	}
	s.offset = part.End

	return part, nil
}

// Size returns the expected total size of the input.
func (s *Sequence) Size() int64 {
	return s.size
}

// PartSize returns the configured part size in bytes.
func (s *Sequence) PartSize() int64 {
	return s.partSize
}

// NumParts returns how many parts the sequence produces for the expected size.
func (s *Sequence) NumParts() int {
	return NumParts(s.size, s.partSize)
}

// Close releases the underlying file, if the sequence owns one.
func (s *Sequence) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
