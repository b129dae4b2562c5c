package multichecksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

// Algorithm names a supported digest function.
type Algorithm string

const (
	AlgorithmMD5    Algorithm = "md5"
	AlgorithmSHA1   Algorithm = "sha1"
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmSHA512 Algorithm = "sha512"
	AlgorithmXXHash Algorithm = "xxhash"
	AlgorithmXXH3   Algorithm = "xxh3"
	AlgorithmBLAKE3 Algorithm = "blake3"
)

// DefaultAlgorithm is the 128-bit MD5 digest.
const DefaultAlgorithm = AlgorithmMD5

var hashers = map[Algorithm]func() hash.Hash{
	AlgorithmMD5:    md5.New,
	AlgorithmSHA1:   sha1.New,
	AlgorithmSHA256: sha256.New,
	AlgorithmSHA512: sha512.New,
	AlgorithmXXHash: func() hash.Hash { return xxhash.New() },
	AlgorithmXXH3:   func() hash.Hash { return xxh3.New() },
	AlgorithmBLAKE3: func() hash.Hash { return blake3.New() },
}

// Algorithms lists the supported algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(hashers))
	for alg := range hashers {
		names = append(names, string(alg))
	}
	sort.Strings(names)
	return names
}

// Digester computes the content digest of a single file.
// Implementations must be safe for concurrent use.
type Digester interface {
	Digest(path string) (string, error)
}

// FileDigester streams file contents from an afero.Fs through a hash function.
type FileDigester struct {
	fs      afero.Fs
	newHash func() hash.Hash
}

// NewFileDigester returns a digester for alg reading from fs.
func NewFileDigester(fs afero.Fs, alg Algorithm) (*FileDigester, error) {
	newHash, ok := hashers[alg]
	if !ok {
		return nil, fmt.Errorf("multichecksum: unknown algorithm %q", alg)
	}
	return &FileDigester{fs: fs, newHash: newHash}, nil
}

// Digest returns the lowercase hex digest of the file at path.
// Failures are returned as *DigestError.
func (d *FileDigester) Digest(path string) (string, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return "", &DigestError{Path: path, Err: err}
	}
	defer f.Close()

	h := d.newHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", &DigestError{Path: path, Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
