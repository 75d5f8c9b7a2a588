package aws

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"clipfeed/clip-api/upload"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Bodies above this go through the multipart manager instead of a
// single PutObject
const minMultipartSize = 12 << 20

// Put writes one object and returns its public URL.
func (c *S3Client) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	now := time.Now()

	input := &s3.PutObjectInput{
		Bucket:        c.Bucket,
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	}

	var err error
	if size > minMultipartSize {
		uploader := manager.NewUploader(c.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})
		_, err = uploader.Upload(ctx, input)
	} else {
		_, err = c.C.PutObject(ctx, input)
	}
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s, %w", key, err)
	}

	zap.L().Debug("Object uploaded",
		zap.String("key", key),
		zap.Int64("size", size),
		zap.Duration("took", time.Since(now)),
	)

	return strings.TrimSuffix(c.PublicURL, "/") + "/" + key, nil
}

// Delete removes one object. Deleting a missing key is not an error.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	_, err := c.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: c.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s, %w", key, err)
	}

	return nil
}

// List returns every object under prefix.
func (c *S3Client) List(ctx context.Context, prefix string) ([]upload.BlobInfo, error) {
	var out []upload.BlobInfo

	paginator := s3.NewListObjectsV2Paginator(c.C, &s3.ListObjectsV2Input{
		Bucket: c.Bucket,
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s, %w", prefix, err)
		}

		for _, obj := range page.Contents {
			info := upload.BlobInfo{Key: aws.ToString(obj.Key)}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			out = append(out, info)
		}
	}

	return out, nil
}
