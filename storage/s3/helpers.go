package s3

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// GetAWSConfig returns the AWS config based on environment variables, shared
// configuration and shared credentials files. A non-empty profile or region
// overrides the ones found in the environment.
func GetAWSConfig(ctx context.Context, profile, region string) (aws.Config, error) {
	var optFns []func(*config.LoadOptions) error
	if profile != "" {
		optFns = append(optFns, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}
	return config.LoadDefaultConfig(ctx, optFns...)
}

func hasValidCredentials(ctx context.Context, config aws.Config) bool {
	if config.Credentials == nil {
		return false
	}
	credentials, err := config.Credentials.Retrieve(ctx)
	if err != nil {
		return false
	}
	return credentials.HasKeys()
}

// sanitizeKey removes surrounding spaces, trailing wildcards and leading slashes,
// and turns OS path separators into the `/` used by object keys.
func sanitizeKey(key string) string {
	key = strings.TrimSuffix(strings.TrimSpace(key), "*")
	key = filepath.ToSlash(key)
	key = strings.TrimPrefix(key, "./")
	return strings.TrimLeft(key, "/")
}
