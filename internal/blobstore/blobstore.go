// Package blobstore stores artifact contents on the file system,
// addressed by the SHA-256 digest of their bytes.
package blobstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/fsx"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// ErrNoSuchBlob indicates that a blob does not exist.
var ErrNoSuchBlob = errors.New("no such blob")

// ErrInvalidDigest indicates a digest that is not hex encoded SHA-256.
var ErrInvalidDigest = errors.New("invalid digest")

var validDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

// FS is a file-system based blob store.
type FS struct {
	basedir string
}

// New creates a new FS rooted at basedir.
func New(basedir string) (*FS, error) {
	return newFileSystem(basedir, os.MkdirAll)
}

// osMkdirAll is the type of os.MkdirAll.
type osMkdirAll func(path string, perm fs.FileMode) error

// newFileSystem is like New with a customizable osMkdirAll.
func newFileSystem(basedir string, mkdir osMkdirAll) (*FS, error) {
	if err := mkdir(basedir, 0700); err != nil {
		return nil, err
	}
	return &FS{basedir: basedir}, nil
}

// Digest returns the hex encoded SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Path returns the path of the blob with the given digest. Blobs are
// fanned out in subdirectories named after the first two hex digits.
func (b *FS) Path(digest string) (string, error) {
	if !validDigest.MatchString(digest) {
		return "", errors.Wrapf(ErrInvalidDigest, "%q", digest)
	}
	return filepath.Join(b.basedir, digest[:2], digest), nil
}

// Put stores data and returns its digest. Storing the same content
// twice is a no-op.
func (b *FS) Put(data []byte) (string, error) {
	digest := Digest(data)
	fpath, err := b.Path(digest)
	if err != nil {
		return "", err
	}
	if b.Has(digest) {
		return digest, nil
	}
	if err := os.MkdirAll(filepath.Dir(fpath), 0700); err != nil {
		return "", err
	}
	if err := lockedfile.Write(fpath, bytes.NewReader(data), 0600); err != nil {
		return "", err
	}
	return digest, nil
}

// Get returns the content of the blob with the given digest. In case
// of a missing blob, the error is such that errors.Is(err, ErrNoSuchBlob).
func (b *FS) Get(digest string) ([]byte, error) {
	fpath, err := b.Path(digest)
	if err != nil {
		return nil, err
	}
	data, err := lockedfile.Read(fpath)
	if err != nil {
		return nil, errors.Wrap(ErrNoSuchBlob, err.Error())
	}
	if Digest(data) != digest {
		return nil, errors.Errorf("blob %s is corrupted", digest)
	}
	return data, nil
}

// Has returns whether the blob exists.
func (b *FS) Has(digest string) bool {
	fpath, err := b.Path(digest)
	if err != nil {
		return false
	}
	return fsx.RegularFileExists(fpath)
}
