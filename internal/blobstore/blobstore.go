// Package blobstore keeps public objects such as badge cards on disk and
// builds their public URLs.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidKey = errors.New("invalid object key")
	ErrNotFound   = errors.New("object not found")
)

// Bucket is a flat key space of public objects.
type Bucket interface {
	Name() string
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) error
	Open(ctx context.Context, key string) (*Object, error)
	URL(key string) string
}

// Object is an open stored object. Callers close it.
type Object struct {
	io.ReadSeekCloser
	Meta    Meta
	Size    int64
	ModTime time.Time
}

// Meta is stored next to each object.
type Meta struct {
	ContentType  string `yaml:"content_type"`
	CacheControl string `yaml:"cache_control"`
}

const metaSuffix = ".meta.yaml"

// DirBucket stores objects under Root/<name>/<key> with a YAML sidecar
// holding the headers.
type DirBucket struct {
	name    string
	root    string
	baseURL string
}

// NewDirBucket roots bucket name at dir. baseURL is the public prefix the
// bucket name and key get appended to.
func NewDirBucket(dir, name, baseURL string) (*DirBucket, error) {
	root := filepath.Join(dir, name)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	return &DirBucket{name: name, root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *DirBucket) Name() string { return b.name }

// CleanKey normalises key and rejects anything escaping the bucket.
func CleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if clean == "" || strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}

func (b *DirBucket) file(key string) (string, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), nil
}

func (b *DirBucket) Exists(_ context.Context, key string) (bool, error) {
	p, err := b.file(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Put writes data atomically, replacing any previous object.
func (b *DirBucket) Put(_ context.Context, key string, data []byte, contentType, cacheControl string) error {
	p, err := b.file(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	meta, err := yaml.Marshal(Meta{ContentType: contentType, CacheControl: cacheControl})
	if err != nil {
		return err
	}
	if err := writeAtomic(p+metaSuffix, meta); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if err := writeAtomic(p, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func writeAtomic(p string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (b *DirBucket) Open(_ context.Context, key string) (*Object, error) {
	p, err := b.file(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	obj := &Object{ReadSeekCloser: f, Size: info.Size(), ModTime: info.ModTime()}
	if data, err := os.ReadFile(p + metaSuffix); err == nil {
		_ = yaml.Unmarshal(data, &obj.Meta)
	}
	return obj, nil
}

// URL is the public address of key. Keys are not validated here.
func (b *DirBucket) URL(key string) string {
	return b.baseURL + "/" + b.name + "/" + strings.TrimPrefix(key, "/")
}
