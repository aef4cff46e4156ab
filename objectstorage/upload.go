package objectstorage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/valyala/gozstd"
)

// Exists reports whether an object with the given key is already stored.
// Attachment keys are content hashes, so a hit means the bytes are there.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeNoSuchKey, "NotFound":
				return false, nil
			}
		}
		return false, err
	}
	return true, nil
}

// PutAttachment stores attachment bytes under their content-addressed key.
// Writes are idempotent: concurrent deliveries of identical bytes produce
// identical objects.
func (c *Client) PutAttachment(ctx context.Context, key string, content []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put attachment %s: %w", key, err)
	}
	return nil
}

// PutRaw archives a raw message zstd-compressed under a generated dated key
// and returns that key.
func (c *Client) PutRaw(ctx context.Context, raw []byte) (string, error) {
	key := GenerateRawKey() + ".zstd"
	_, err := c.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(gozstd.Compress(nil, raw)),
		ContentType: aws.String("application/zstd"),
	})
	if err != nil {
		return "", fmt.Errorf("put raw %s: %w", key, err)
	}
	return key, nil
}

// PublicURL is the address an inline attachment is served from when the
// bucket is exposed under a public domain.
func (c *Client) PublicURL(domain, key string) string {
	return "https://" + domain + "/" + key
}

// GenerateRawKey builds a raw-archive key from the current time:
// raw/YYYY/MM/DD/HH/mm/ss/UUID
func GenerateRawKey() string {
	now := time.Now()
	return fmt.Sprintf("raw/%04d/%02d/%02d/%02d/%02d/%02d/%s",
		now.Year(), now.Month(), now.Day(),
		now.Hour(), now.Minute(), now.Second(),
		uuid.New().String())
}
