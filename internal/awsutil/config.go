// Package awsutil loads the AWS SDK configuration shared by every client.
package awsutil

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/event-recorder/internal/config"
)

// Load loads the AWS configuration for cfg.Region. When cfg.EndpointURL is
// set (LocalStack, MinIO) every service resolves to it.
func Load(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	if cfg.EndpointURL == "" {
		return awsCfg.LoadDefaultConfig(ctx, awsCfg.WithRegion(cfg.Region))
	}

	endpoint := cfg.EndpointURL
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...any) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               endpoint,
			HostnameImmutable: true,
			PartitionID:       "aws",
		}, nil
	})
	return awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithEndpointResolverWithOptions(resolver),
	)
}

// S3Client creates an S3 client, switching to path-style addressing when a
// custom endpoint is configured.
func S3Client(awsConf aws.Config, cfg config.AWSConfig) *s3.Client {
	return s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.UsePathStyle = true
		}
	})
}
