// Package env holds build-time metadata injected via -ldflags, following
// the conventional `-X github.com/gofatx/gofatx/internal/env.Version=...`
// pattern so release builds can stamp a version without a generated file.
package env

var (
	Version    = "dev"
	CommitHash = "none"
	BuildTime  = "unknown"
)
