package artifacts

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/shamanec/GADS-xctest-runner/logger"
)

// Config describes the S3 compatible object store artifacts are uploaded to
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// Enabled reports whether an object store was configured at all
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	return nil
}

// Uploader stores local files under an artifact name
type Uploader interface {
	Upload(ctx context.Context, artifactName string, files ...string) ([]string, error)
}

// ObjectKey is where a file of an artifact is stored, `<artifact name>/<file name>`
func ObjectKey(artifactName, file string) string {
	return path.Join(artifactName, filepath.Base(file))
}

var contentTypes = map[string]string{
	".zip": "application/zip",
	".mp4": "video/mp4",
	".mov": "video/quicktime",
	".log": "text/plain; charset=utf-8",
}

func contentType(file string) string {
	ext := strings.ToLower(filepath.Ext(file))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

type MinIOUploader struct {
	client *minio.Client
	cfg    Config
}

func NewMinIOUploader(cfg Config) (*MinIOUploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}
	return &MinIOUploader{client: client, cfg: cfg}, nil
}

func (u *MinIOUploader) ensureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.cfg.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return u.client.MakeBucket(ctx, u.cfg.Bucket, minio.MakeBucketOptions{Region: u.cfg.Region})
}

// Upload puts every file into the bucket and returns the object keys
func (u *MinIOUploader) Upload(ctx context.Context, artifactName string, files ...string) ([]string, error) {
	if err := u.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure artifacts bucket: %w", err)
	}

	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := ObjectKey(artifactName, file)
		info, err := u.client.FPutObject(ctx, u.cfg.Bucket, key, file, minio.PutObjectOptions{ContentType: contentType(file)})
		if err != nil {
			return keys, fmt.Errorf("upload `%s`: %w", file, err)
		}
		logger.RunnerLogger.LogInfo("upload_artifact", fmt.Sprintf("Uploaded `%s` to `%s/%s` (%d bytes)", file, u.cfg.Bucket, key, info.Size))
		keys = append(keys, key)
	}
	return keys, nil
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
