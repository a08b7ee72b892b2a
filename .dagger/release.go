package main

import (
	"context"
	"fmt"
	"path"

	"dagger/vera/internal/dagger"
)

// bucket holds the credentials of the S3-compatible release bucket.
type bucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyId     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// withChecksums adds a SHA256SUMS manifest covering every binary in
// artifacts, so install scripts can verify a download.
func (v *Vera) withChecksums(artifacts *dagger.Directory) *dagger.Directory {
	sums := dag.Container().
		From("alpine:3.21").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts").
		WithExec([]string{"sh", "-c", "find . -type f -name vera | sort | xargs sha256sum > SHA256SUMS"}).
		File("/artifacts/SHA256SUMS")

	return artifacts.WithFile("SHA256SUMS", sums)
}

// sync uploads artifacts under each prefix in turn and stops at the first
// failure.
func (v *Vera) sync(ctx context.Context, b bucket, artifacts *dagger.Directory, prefixes ...string) error {
	name, err := b.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket name: %w", err)
	}
	endpoint, err := b.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket endpoint: %w", err)
	}

	awsCli := dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", b.accessKeyId).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", b.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts")

	for _, prefix := range prefixes {
		destination := "s3://" + path.Join(name, prefix)
		_, err := awsCli.
			WithExec([]string{"aws", "s3", "sync", ".", destination, "--endpoint-url", endpoint}).
			Sync(ctx)
		if err != nil {
			return fmt.Errorf("uploading artifacts to %s: %w", prefix, err)
		}
	}

	return nil
}

// ReleaseLatest builds versioned release binaries with checksums and uploads
// them under the version prefix and under "latest"
func (v *Vera) ReleaseLatest(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts := v.withChecksums(v.BuildRelease(ctx, version, commit))
	b := bucket{endpoint: endpoint, name: bucketName, accessKeyId: accessKeyId, secretAccessKey: secretAccessKey}

	return artifacts, v.sync(ctx, b, artifacts, version, "latest")
}

// Nightly builds binaries stamped "nightly" and uploads them under the
// nightly prefix
func (v *Vera) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts := v.withChecksums(v.BuildRelease(ctx, "nightly", commit))
	b := bucket{endpoint: endpoint, name: bucketName, accessKeyId: accessKeyId, secretAccessKey: secretAccessKey}

	return artifacts, v.sync(ctx, b, artifacts, "nightly")
}
