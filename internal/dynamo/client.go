// Package dynamo implements the persistence layer on top of AWS DynamoDB:
// client construction per deployment mode, idempotent table provisioning,
// and the item read/write facade used by the web handlers.
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"terptracker/internal/config"
)

// NewClient builds a DynamoDB client for the configured deployment mode.
// PROD resolves credentials from the environment; DEV points at a local
// DynamoDB endpoint with placeholder credentials. Timeouts and retries are
// whatever the SDK defaults to.
func NewClient(ctx context.Context, cfg config.Config) (*dynamodb.Client, error) {
	switch cfg.DBMode {
	case config.ModeProd:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.AWSRegion),
		)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return dynamodb.NewFromConfig(awsCfg), nil

	case config.ModeDev:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.AWSRegion),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("dummy", "dummy", ""),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		endpoint := cfg.DynamoDBEndpoint
		return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		}), nil

	default:
		return nil, fmt.Errorf("unsupported db mode %q", cfg.DBMode)
	}
}
