package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"s3vectors/infrastructure/config"
)

// NewClient builds an S3 client for an S3-compatible endpoint (MinIO, Ceph,
// AWS). Path-style addressing is forced because bucket-as-hostname does not
// resolve against self-hosted stores.
func NewClient(ctx context.Context, cfg *config.Config) (*awss3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		),
	)
	if err != nil {
		return nil, err
	}

	return awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3EndpointURL)
		o.UsePathStyle = true
	}), nil
}
