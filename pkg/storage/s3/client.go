package s3

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/sadhanapeeth/sadhana-backend/pkg/config"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
)

const deleteBatchSize = 1000

// Client wraps the S3 API with the presign and object-management surface the
// content and delivery services consume.
type Client struct {
	api           *awss3.Client
	presigner     *awss3.PresignClient
	bucket        string
	region        string
	publicBaseURL string
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PresignedUpload is the result of issuing an upload URL.
type PresignedUpload struct {
	UploadURL   string `json:"uploadUrl"`
	DownloadURL string `json:"downloadUrl"`
	Key         string `json:"key"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	LastModified time.Time `json:"lastModified"`
}

// NewClient builds an S3 client from configuration. A custom endpoint forces
// path-style addressing (MinIO and compatible stores).
func NewClient(ctx context.Context, cfg config.S3Config, logg *logger.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	api := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	client := &Client{
		api:           api,
		presigner:     awss3.NewPresignClient(api),
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}

	if logg != nil {
		logg.Info(ctx, "s3 client initialized")
	}
	return client, nil
}

// Ping verifies the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", c.bucket, err)
	}
	return nil
}

// PresignedUploadURL issues a time-limited PUT URL for a fresh object key
// under the folder. The key embeds a millisecond timestamp and a short
// random suffix so concurrent uploads never collide.
func (c *Client) PresignedUploadURL(ctx context.Context, folder, fileName, contentType string, expires time.Duration) (*PresignedUpload, error) {
	key := buildObjectKey(folder, fileName)

	req, err := c.presigner.PresignPutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, awss3.WithPresignExpires(expires))
	if err != nil {
		return nil, fmt.Errorf("presigning upload for %s: %w", key, err)
	}

	return &PresignedUpload{
		UploadURL:   req.URL,
		DownloadURL: c.PublicURL(key),
		Key:         key,
		ExpiresIn:   int64(expires.Seconds()),
	}, nil
}

// PresignedDownloadURL issues a time-limited GET URL for an existing key.
func (c *Client) PresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presigning download for %s: %w", key, err)
	}
	return req.URL, nil
}

// FileExists reports whether the key resolves to a stored object.
func (c *Client) FileExists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	return true, nil
}

// PublicURL derives the canonical URL for a storage key.
func (c *Client) PublicURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	if c.publicBaseURL != "" {
		return c.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}

// KeyFromURL reverses PublicURL, returning "" when the URL does not point at
// this bucket.
func (c *Client) KeyFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if c.publicBaseURL != "" && strings.HasPrefix(rawURL, c.publicBaseURL+"/") {
		return strings.TrimPrefix(rawURL, c.publicBaseURL+"/")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(parsed.Host, c.bucket+".s3.") {
		return strings.TrimPrefix(parsed.Path, "/")
	}
	return ""
}

// DeleteFile removes a single object.
func (c *Client) DeleteFile(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// DeleteFiles removes a batch of objects, aggregating per-object failures
// instead of stopping at the first one.
func (c *Client) DeleteFiles(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	var errs error
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := c.api.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, failure := range out.Errors {
			errs = multierr.Append(errs, fmt.Errorf("delete object %s: %s",
				aws.ToString(failure.Key), aws.ToString(failure.Message)))
		}
	}
	return errs
}

// ListFiles enumerates every object under the folder prefix, following
// pagination. Content types are derived from the key extension since the
// list API does not return them.
func (c *Client) ListFiles(ctx context.Context, folder string) ([]ObjectInfo, error) {
	prefix := strings.TrimSuffix(folder, "/") + "/"

	var objects []ObjectInfo
	paginator := awss3.NewListObjectsV2Paginator(c.api, &awss3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			objects = append(objects, ObjectInfo{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				ContentType:  mime.TypeByExtension(path.Ext(key)),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}

func buildObjectKey(folder, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	folder = strings.Trim(folder, "/")
	return fmt.Sprintf("%s/%d-%s%s", folder, time.Now().UnixMilli(), uuid.NewString()[:8], ext)
}
