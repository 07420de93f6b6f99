// Package main provides the caravel CLI for vendoring build dependencies
// and producing multi-platform release bundles.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caravel-build/caravel/internal/domain/entities"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]

	// Dispatch to subcommand
	switch command {
	case "vendor":
		runVendor(ctx, os.Args[2:])
	case "plan":
		runPlan(ctx, os.Args[2:])
	case "release":
		runRelease(ctx, os.Args[2:])
	case "verify":
		runVerify(ctx, os.Args[2:])
	case "list":
		runList(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`caravel - Deterministic dependency vendoring and release pipeline

Usage:
  caravel <command> [options]

Commands:
  vendor   Resolve and vendor all build dependencies, derive the manifest
  plan     Compile the per-platform build plan without dispatching builds
  release  Build all target platforms and assemble the release bundle
  verify   Re-validate the vendor store and published release digests
  list     Show the project configuration and lock state

Use "caravel <command> --help" for more information about a command.`)
}

// exitCode maps an error to the documented process exit code: 1 for
// validation and resolution failures, 2 for an incomplete release, 3 for a
// publish conflict.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var incomplete *entities.IncompleteReleaseError
	var immutable *entities.ImmutabilityViolationError
	switch {
	case errors.As(err, &immutable):
		return 3
	case errors.As(err, &incomplete):
		return 2
	default:
		return 1
	}
}

// fail prints the error and exits with its mapped code.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitCode(err))
}

// defaultOutputRoot returns the output root, honoring the environment
// override.
func defaultOutputRoot() string {
	if root := os.Getenv("CARAVEL_OUTPUT_ROOT"); root != "" {
		return root
	}
	return "dist"
}

// vendoredMode reports whether builds resolve against the vendor store
// (default) or let the toolchain resolve live.
func vendoredMode() bool {
	return os.Getenv("CARAVEL_VENDOR_MODE") != "live"
}

// splitPlatforms parses a comma-separated platform list.
func splitPlatforms(csv string) []string {
	var platforms []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			platforms = append(platforms, p)
		}
	}
	return platforms
}
