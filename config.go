package kvcachego

import (
	"os"
	"strconv"
)

// Config carries the cache parameters and the S3 connection settings used by
// Open. The zero value is not usable; start from DefaultConfig.
type Config struct {
	// ModelID namespaces all keys. Caches with different model ids never
	// share blocks.
	ModelID string

	// BlockSizeTokens is the number of tokens covered by one block. All
	// readers and writers of a shared bucket must agree on it.
	BlockSizeTokens uint32

	// CapacityBytes is the soft limit on resident payload bytes. Zero
	// disables eviction.
	CapacityBytes uint64

	// S3Endpoint is the object store endpoint URL.
	S3Endpoint string

	// S3Region is the region passed to the S3 client.
	S3Region string

	// S3Bucket is the bucket holding block objects.
	S3Bucket string

	// AWSAccessKeyID and AWSSecretAccessKey are static credentials for the
	// endpoint.
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// S3UsePathStyle forces path-style addressing when true. Leave nil to
	// use the default, which is path-style (MinIO and most self-hosted
	// endpoints require it).
	S3UsePathStyle *bool
}

// DefaultConfig returns a Config wired for a local MinIO instance.
func DefaultConfig() Config {
	return Config{
		ModelID:            "demo-model",
		BlockSizeTokens:    256,
		CapacityBytes:      10 << 30,
		S3Endpoint:         "http://127.0.0.1:9000",
		S3Region:           "us-east-1",
		S3Bucket:           "kv-cache",
		AWSAccessKeyID:     "minioadmin",
		AWSSecretAccessKey: "minioadmin",
	}
}

// ApplyEnvDefaults overwrites connection settings from KVC_* environment
// variables where they are set. Cache parameters (ModelID, BlockSizeTokens,
// CapacityBytes) are not read from the environment.
//
//	KVC_S3_ENDPOINT
//	KVC_S3_REGION
//	KVC_S3_BUCKET
//	KVC_AWS_ACCESS_KEY_ID
//	KVC_AWS_SECRET_ACCESS_KEY
//	KVC_S3_USE_PATH_STYLE ("true"/"false")
func (c *Config) ApplyEnvDefaults() {
	if v := os.Getenv("KVC_S3_ENDPOINT"); v != "" {
		c.S3Endpoint = v
	}
	if v := os.Getenv("KVC_S3_REGION"); v != "" {
		c.S3Region = v
	}
	if v := os.Getenv("KVC_S3_BUCKET"); v != "" {
		c.S3Bucket = v
	}
	if v := os.Getenv("KVC_AWS_ACCESS_KEY_ID"); v != "" {
		c.AWSAccessKeyID = v
	}
	if v := os.Getenv("KVC_AWS_SECRET_ACCESS_KEY"); v != "" {
		c.AWSSecretAccessKey = v
	}
	if v := os.Getenv("KVC_S3_USE_PATH_STYLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.S3UsePathStyle = &b
		}
	}
}

// PathStyle resolves the effective addressing mode. Unset means path-style.
func (c Config) PathStyle() bool {
	if c.S3UsePathStyle == nil {
		return true
	}
	return *c.S3UsePathStyle
}
