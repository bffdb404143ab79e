// Package r2client is the Cloudflare R2 (S3-compatible) client behind the
// remote query-log sink. It only uploads objects; batches are compressed with
// zstd before they leave the process.
package r2client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/klauspost/compress/zstd"
)

// ErrBucketNotFound is returned by CheckBucket when the bucket does not exist.
var ErrBucketNotFound = errors.New("r2client: bucket not found")

// Config holds R2 credentials. Endpoint is
// https://<account-id>.r2.cloudflarestorage.com.
type Config struct {
	Endpoint    string
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

func (c Config) validate() error {
	var missing []string
	for name, v := range map[string]string{
		"endpoint":      c.Endpoint,
		"access key id": c.AccessKeyID,
		"secret key":    c.SecretKey,
		"bucket":        c.BucketName,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("r2client: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Client uploads objects into one bucket.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New builds a client. It does not contact R2; see CheckBucket.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("r2client: load aws config: %w", err)
	}

	return &Client{
		s3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}),
		bucket: cfg.BucketName,
	}, nil
}

// CheckBucket verifies the bucket exists and the credentials can reach it.
func (c *Client) CheckBucket(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return fmt.Errorf("%w: %s", ErrBucketNotFound, c.bucket)
	default:
		return fmt.Errorf("r2client: head bucket %q: %w", c.bucket, err)
	}
}

// Upload writes body to key and returns the object's ETag.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	out, err := c.s3.PutObject(ctx, in)
	if err != nil {
		return "", fmt.Errorf("r2client: put %q: %w", key, err)
	}
	return strings.Trim(aws.ToString(out.ETag), `"`), nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchBucket") {
		return true
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}

// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll.
var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return encoder, decoder, codecErr
}

// Compress returns data as one zstd frame.
func Compress(data []byte) ([]byte, error) {
	enc, _, err := codec()
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress reads a whole zstd stream.
func Decompress(r io.Reader) ([]byte, error) {
	_, dec, err := codec()
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress: read: %w", err)
	}
	data, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return data, nil
}
