// Vera CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/vera/internal/dagger"
)

// Vera is the main module for the Vera CI/CD pipeline
type Vera struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Vera CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".vera", "build", "tmp"]
	source *dagger.Directory,
) *Vera {
	return &Vera{
		Source: source,
	}
}

// goContainer returns an Alpine-based Go container with the project source
// mounted. vera has no cgo dependencies.
func (v *Vera) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-alpine").
		WithEnvVariable("CGO_ENABLED", "0").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", v.Source)
}

// Test runs the vera unit tests via "go test"
func (v *Vera) Test(ctx context.Context) (string, error) {
	return v.goContainer().
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}

// TestRace runs the session and transport tests under the race detector.
// The race detector needs cgo, so this uses the Debian image.
func (v *Vera) TestRace(ctx context.Context) (string, error) {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithEnvVariable("CGO_ENABLED", "1").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", v.Source).
		WithExec([]string{"go", "test", "-race", "./pkg/session/...", "./pkg/transport/...", "./pkg/client/..."}).
		Stdout(ctx)
}
