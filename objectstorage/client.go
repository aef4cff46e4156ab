package objectstorage

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/shinmk/mailintake/config"
)

// Client wraps the S3 bucket holding attachment objects (content addressed,
// shared across messages) and archived raw messages.
type Client struct {
	s3     *s3.S3
	bucket string
}

func New(conf config.ObjectStorage) *Client {
	s3session := session.Must(session.NewSession(&aws.Config{
		Region:   aws.String(conf.Region),
		Endpoint: aws.String(conf.Endpoint),
		Credentials: credentials.NewChainCredentials([]credentials.Provider{
			&credentials.StaticProvider{
				Value: credentials.Value{
					AccessKeyID:     conf.AccessKey,
					SecretAccessKey: conf.SecretKey,
				},
			},
		}),
	}))
	return &Client{
		s3:     s3.New(s3session),
		bucket: conf.Bucket,
	}
}

// Configured reports whether the config named a bucket at all.
func Configured(conf config.ObjectStorage) bool {
	return conf.Bucket != "" && conf.Endpoint != ""
}
