//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are installed globally via `go install` and are not tracked in go.mod
// since they are development tools, not runtime dependencies.
package tools

// Development tools (install via `go install`):
//
// Air - Live reload while iterating on the shell locally
//   Install: go install github.com/air-verse/air@v1.63.0
//   Version: v1.63.0 (pinned 2025-06-01)
//   Docs: https://github.com/air-verse/air
//
// golangci-lint - Lint aggregator used before pushing
//   Install: go install github.com/golangci/golangci-lint/cmd/golangci-lint@v1.64.8
//   Docs: https://golangci-lint.run
