package objectstorage

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/valyala/gozstd"
)

// Download fetches an object, transparently decompressing archived raw
// messages.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := c.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(key, ".zstd") {
		zstd := gozstd.NewReader(resp.Body)
		return struct {
			io.Reader
			io.Closer
		}{
			Reader: zstd,
			Closer: resp.Body,
		}, nil
	}
	return resp.Body, nil
}
