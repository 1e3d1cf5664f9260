// Package artifactstore loads and saves artifacts on the local filesystem or S3.
//
// URIs of the form s3://bucket/key address S3; anything else is a local path.
package artifactstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/okian/sackline/internal/artifact"
	"github.com/okian/sackline/pkg/logger"
	"github.com/okian/sackline/pkg/metrics"
)

// Backend names used in metrics and logs.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Location is a parsed artifact URI.
type Location struct {
	Backend string
	Bucket  string // s3 only
	Key     string // object key or file path
}

// Parse splits an artifact URI.
func Parse(uri string) (Location, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Location{}, fmt.Errorf("%w: empty", ErrInvalidURI)
	}
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return Location{Backend: BackendFile, Key: uri}, nil
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return Location{}, fmt.Errorf("%w: %q needs s3://bucket/key", ErrInvalidURI, uri)
	}
	return Location{Backend: BackendS3, Bucket: bucket, Key: key}, nil
}

// Store reads and writes artifacts.
type Store struct {
	region string
	log    logger.Logger

	mu     sync.Mutex
	client S3API
}

// Option configures a Store.
type Option func(*Store)

// WithRegion sets the AWS region used when the S3 client is created.
func WithRegion(region string) Option { return func(s *Store) { s.region = region } }

// WithS3Client injects an S3 client instead of loading the default AWS config.
func WithS3Client(c S3API) Option { return func(s *Store) { s.client = c } }

// WithLogger sets the logger. Without it the store logs through the global
// logger once it has something to report.
func WithLogger(l logger.Logger) Option { return func(s *Store) { s.log = l } }

// New returns a store.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) logger() logger.Logger {
	if s.log != nil {
		return s.log
	}
	return logger.Named("artifactstore")
}

func (s *Store) s3Client(ctx context.Context) (S3API, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	var opts []func(*awsconfig.LoadOptions) error
	if s.region != "" {
		opts = append(opts, awsconfig.WithRegion(s.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	s.client = s3.NewFromConfig(cfg)
	return s.client, nil
}

// Load fetches and validates the artifact at uri.
func (s *Store) Load(ctx context.Context, uri string) (*artifact.Artifact, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}
	a, err := s.load(ctx, loc)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordArtifactLoad(loc.Backend, outcome)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", uri, err)
	}
	s.logger().Info(ctx, "loaded artifact",
		logger.String("uri", uri),
		logger.String("version", a.Version),
		logger.Int("columns", a.Schema.Width()),
		logger.Int("trees", len(a.Model.Trees)),
	)
	return a, nil
}

func (s *Store) load(ctx context.Context, loc Location) (*artifact.Artifact, error) {
	var body io.ReadCloser
	switch loc.Backend {
	case BackendS3:
		c, err := s.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		out, err := c.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Key),
		})
		if err != nil {
			var nsk *types.NoSuchKey
			if errors.As(err, &nsk) {
				return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return nil, err
		}
		body = out.Body
	default:
		f, err := os.Open(loc.Key)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return nil, err
		}
		body = f
	}
	defer body.Close()
	return artifact.Read(body)
}

// Save validates a and writes it to uri.
func (s *Store) Save(ctx context.Context, uri string, a *artifact.Artifact) error {
	loc, err := Parse(uri)
	if err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := a.Write(&buf); err != nil {
		return err
	}

	switch loc.Backend {
	case BackendS3:
		c, err := s.s3Client(ctx)
		if err != nil {
			return err
		}
		_, err = c.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(loc.Bucket),
			Key:         aws.String(loc.Key),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", uri, err)
		}
	default:
		if err := os.MkdirAll(filepath.Dir(loc.Key), 0o755); err != nil {
			return err
		}
		tmp := loc.Key + ".tmp"
		if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil { //nolint:gosec // artifacts are not secret
			return err
		}
		if err := os.Rename(tmp, loc.Key); err != nil {
			return err
		}
	}
	s.logger().Info(ctx, "saved artifact", logger.String("uri", uri), logger.String("version", a.Version))
	return nil
}
