// Package s3 writes audit entries as JSON objects to an S3-compatible bucket,
// one object per executed query. It is a drop-in substitute for the Postgres
// recorder where the deployment prefers object storage for audit trails.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/queryguard/queryguard/internal/audit"
)

type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

type uploader interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
}

type Recorder struct {
	client uploader
	bucket string
	prefix string
}

func NewRecorder(cfg Config) (*Recorder, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	client, err := newMinioUploader(cfg)
	if err != nil {
		return nil, err
	}
	return NewRecorderWithClient(cfg.Bucket, cfg.Prefix, client)
}

func NewRecorderWithClient(bucket, prefix string, client uploader) (*Recorder, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Recorder{
		client: client,
		bucket: strings.TrimSpace(bucket),
		prefix: cleanPrefix(prefix),
	}, nil
}

type entryDocument struct {
	PreviewID  string `json:"preview_id,omitempty"`
	Query      string `json:"query"`
	UserID     string `json:"user_id,omitempty"`
	ExecutedAt string `json:"executed_at"`
}

func (r *Recorder) Record(ctx context.Context, entry audit.Entry) error {
	body, err := json.Marshal(entryDocument{
		PreviewID:  entry.PreviewID,
		Query:      entry.Query,
		UserID:     entry.UserID,
		ExecutedAt: entry.ExecutedAt.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	key := r.objectKey(entry)
	if err := r.client.Put(ctx, r.bucket, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return fmt.Errorf("put audit object %q: %w", key, err)
	}
	return nil
}

func (r *Recorder) objectKey(entry audit.Entry) string {
	name := strconv.FormatInt(entry.ExecutedAt.UTC().UnixNano(), 10)
	if entry.PreviewID != "" {
		name += "-" + entry.PreviewID
	}
	key := path.Join("audit", entry.ExecutedAt.UTC().Format("2006-01-02"), name+".json")
	if r.prefix != "" {
		key = path.Join(r.prefix, key)
	}
	return key
}

func cleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return ""
	}
	prefix = path.Clean(prefix)
	if prefix == "." {
		return ""
	}
	return prefix
}

func newMinioUploader(cfg Config) (*minioUploader, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioUploader{client: client}, nil
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("endpoint is required")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", false, fmt.Errorf("parse endpoint URL: %w", err)
		}
		if parsed.Host == "" {
			return "", false, fmt.Errorf("endpoint host is required")
		}
		if parsed.Scheme == "https" {
			return parsed.Host, true, nil
		}
		return parsed.Host, useSSL, nil
	}
	return raw, useSSL, nil
}

type minioUploader struct {
	client *minio.Client
}

func (m *minioUploader) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}
