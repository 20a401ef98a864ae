// Package treehash computes the SHA-256 tree hash used by Amazon S3 Glacier to verify
// archives and multipart upload parts.
//
// The input is split into consecutive 1 MiB leaves. Every leaf is hashed with SHA-256,
// then adjacent hashes are concatenated and hashed again, level by level, until a single
// root remains. A trailing hash without a pair is promoted to the next level unchanged.
package treehash

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// LeafSize is the fixed leaf size of the tree, independent of the upload part size.
const LeafSize = 1024 * 1024

// Hash is a streaming tree hash. It implements hash.Hash.
type Hash struct {
	leaves  [][]byte
	current hash.Hash
	filled  int
}

var _ hash.Hash = (*Hash)(nil)

// New returns an empty tree hash.
func New() *Hash {
	return &Hash{current: sha256.New()}
}

// Write feeds p into the tree, closing a leaf every LeafSize bytes. It never returns an error.
func (h *Hash) Write(p []byte) (int, error) {
	written := len(p)
	for len(p) > 0 {
		n := LeafSize - h.filled
		if n > len(p) {
			n = len(p)
		}
		h.current.Write(p[:n])
		h.filled += n
		p = p[n:]

		if h.filled == LeafSize {
			h.leaves = append(h.leaves, h.current.Sum(nil))
			h.current.Reset()
			h.filled = 0
		}
	}
	return written, nil
}

// Sum appends the root hash to b. It does not change the state of h.
func (h *Hash) Sum(b []byte) []byte {
	return append(b, Combine(h.LeafHashes())...)
}

// LeafHashes returns the hashes of the leaves written so far, including the open trailing leaf.
func (h *Hash) LeafHashes() [][]byte {
	leaves := make([][]byte, len(h.leaves), len(h.leaves)+1)
	copy(leaves, h.leaves)
	if h.filled > 0 || len(leaves) == 0 {
		leaves = append(leaves, h.current.Sum(nil))
	}
	return leaves
}

// Reset clears all written data.
func (h *Hash) Reset() {
	h.leaves = nil
	h.current.Reset()
	h.filled = 0
}

// Size returns the number of bytes Sum appends.
func (h *Hash) Size() int {
	return sha256.Size
}

// BlockSize returns the leaf size.
func (h *Hash) BlockSize() int {
	return LeafSize
}

// Combine reduces leaf hashes to the root hash.
func Combine(hashes [][]byte) []byte {
	if len(hashes) == 0 {
		empty := sha256.Sum256(nil)
		return empty[:]
	}

	level := hashes
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			pair := sha256.New()
			pair.Write(level[i])
			pair.Write(level[i+1])
			next = append(next, pair.Sum(nil))
		}
		level = next
	}
	return level[0]
}

// LeafHashes returns the leaf hashes of b.
func LeafHashes(b []byte) [][]byte {
	h := New()
	h.Write(b) //nolint:errcheck
	return h.LeafHashes()
}

// OfBytes returns the hex encoded tree hash of b.
func OfBytes(b []byte) string {
	h := New()
	h.Write(b) //nolint:errcheck
	return hex.EncodeToString(h.Sum(nil))
}
