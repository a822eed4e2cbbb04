// Package s3cache stores cache snapshots in an S3-compatible bucket so that
// several machines can share build results. Objects are YAML snapshots at
// {Prefix}{target}/{hash}.yaml.
package s3cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/specialistvlad/buildgrid/internal/cache"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
)

// Config locates the bucket.
type Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// CreateBucket makes the bucket when it does not exist yet.
	CreateBucket bool
}

// Validate checks the required fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("s3 cache endpoint is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("s3 cache bucket is required")
	}
	return nil
}

// objects is the slice of the S3 API the store needs.
type objects interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	put(ctx context.Context, key string, data []byte) error
}

// Store implements cache.Store on top of an S3 bucket.
type Store struct {
	prefix string
	api    objects
}

var _ cache.Store = (*Store)(nil)

// New connects to the bucket described by cfg and verifies it exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking s3 cache bucket: %w", err)
	}
	if !exists {
		if !cfg.CreateBucket {
			return nil, fmt.Errorf("s3 cache bucket missing: %s", cfg.Bucket)
		}
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("creating s3 cache bucket: %w", err)
		}
		ctxlog.FromContext(ctx).Info("Created s3 cache bucket.", "bucket", cfg.Bucket)
	}
	return &Store{prefix: cfg.Prefix, api: &minioObjects{client: client, bucket: cfg.Bucket}}, nil
}

func (s *Store) key(target, hash string) string {
	return s.prefix + target + "/" + hash + ".yaml"
}

func (s *Store) Get(ctx context.Context, target, hash string) (*cache.Snapshot, bool, error) {
	data, ok, err := s.api.get(ctx, s.key(target, hash))
	if err != nil || !ok {
		return nil, false, err
	}
	snap, err := cache.Unmarshal(data)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Ignoring unreadable cache object.", "key", s.key(target, hash), "error", err)
		return nil, false, nil
	}
	return snap, true, nil
}

func (s *Store) Put(ctx context.Context, target, hash string, snap *cache.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cache snapshot is nil")
	}
	data, err := cache.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := s.api.put(ctx, s.key(target, hash), data); err != nil {
		return fmt.Errorf("uploading cache entry: %w", err)
	}
	return nil
}

type minioObjects struct {
	client *minio.Client
	bucket string
}

func (m *minioObjects) get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading s3 object %s: %w", key, err)
	}
	return data, true, nil
}

func (m *minioObjects) put(ctx context.Context, key string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/yaml"})
	return err
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
