package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caravel-build/caravel/internal/domain-adapters/gateways"
	orchestrators "github.com/caravel-build/caravel/internal/domain-orchestrators"
	"github.com/caravel-build/caravel/internal/domain/entities"
	"github.com/caravel-build/caravel/internal/domain/interfaces"
	"github.com/caravel-build/caravel/internal/external-adapters/bolt"
	"github.com/caravel-build/caravel/internal/external-adapters/gpg"
	"github.com/caravel-build/caravel/internal/external-adapters/yaml"
)

func runRelease(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("release", flag.ExitOnError)
	var (
		version      = fs.String("version", "", "Release version tag (defaults to the project version)")
		platformsCSV = fs.String("platforms", "", "Comma-separated target platforms (defaults to all configured)")
		configDir    = fs.String("config", ".", "Project directory containing project.yml and caravel.lock")
		outputRoot   = fs.String("output-root", defaultOutputRoot(), "Root directory for the vendor store and build outputs")
		publish      = fs.Bool("publish", false, "Publish the bundle instead of a dry run")
		keyFile      = fs.String("key", "", "Signing key file (overrides the project signing configuration)")
		verbose      = fs.Bool("verbose", false, "Enable debug logging")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: caravel release [options]

Run the full pipeline: vendor the dependency graph, build every target
platform in parallel, aggregate the checksummed artifacts, and publish the
bundle when --publish is given.

Examples:
  caravel release                          # dry run for all platforms
  caravel release --publish                # build and publish
  caravel release --platforms linux-amd64,linux-arm64 --publish
  caravel release --version v0.2.0 --publish

Exit codes:
  0  full success
  1  validation or resolution error
  2  one or more platform builds failed
  3  version already published with different content

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	logger := &interfaces.StderrLogger{Verbose: *verbose}
	vendored := vendoredMode()

	var project *entities.Project
	var snapshot *entities.VendorSnapshot
	manifestBytes := []byte("[]\n")
	if vendored {
		result, err := vendorProject(ctx, *configDir, *outputRoot, logger)
		if err != nil {
			fail(err)
		}
		project = result.Project
		snapshot = result.Snapshot
		manifestBytes = result.ManifestBytes
	} else {
		var err error
		project, err = yaml.NewProjectRepository(*configDir).LoadProject(ctx)
		if err != nil {
			fail(err)
		}
		logger.Warn("live-resolution mode: builds may touch the network")
	}

	if *version == "" {
		*version = project.Version
	}
	platforms := project.PlatformNames()
	if *platformsCSV != "" {
		platforms = splitPlatforms(*platformsCSV)
	}

	req := &entities.ReleaseRequest{
		Version:    *version,
		Platforms:  platforms,
		OutputRoot: *outputRoot,
		Publish:    *publish,
	}

	releaseRoot := filepath.Join(*outputRoot, "releases")
	if err := os.MkdirAll(releaseRoot, 0750); err != nil {
		fail(fmt.Errorf("failed to create release root: %w", err))
	}
	index, err := bolt.Open(filepath.Join(releaseRoot, ".index.db"))
	if err != nil {
		fail(err)
	}
	//nolint:errcheck // Defer close on index database
	defer index.Close()

	toolchain := gateways.NewToolchainRunner(project.Dir, logger)
	builder := gateways.NewPlatformBuilder(toolchain, gateways.NewPackager(), vendored, logger)
	publisher := gateways.NewPublisher(releaseRoot, index, logger)

	var signer orchestrators.IndexSigner
	if key := signingKeyPath(*keyFile, project); key != "" {
		s, err := gpg.LoadSignerFromFile(key)
		if err != nil {
			fail(err)
		}
		signer = s
	}

	orch := orchestrators.NewReleaseOrchestrator(builder, publisher, signer, logger)
	result, err := orch.Release(ctx, project, snapshot, req, manifestBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var incomplete *entities.IncompleteReleaseError
		if errors.As(err, &incomplete) {
			for _, f := range incomplete.Failures {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Platform, f.Reason)
			}
		}
		os.Exit(exitCode(err))
	}

	printReleaseSummary(project, result)
}

// signingKeyPath picks the signing key: the flag wins, then the project
// configuration. Relative project paths resolve against the project dir.
func signingKeyPath(flagValue string, project *entities.Project) string {
	if flagValue != "" {
		return flagValue
	}
	key := project.Signing.KeyFile
	if key != "" && !filepath.IsAbs(key) {
		key = filepath.Join(project.Dir, key)
	}
	return key
}

func printReleaseSummary(project *entities.Project, result *orchestrators.ReleaseResult) {
	fmt.Printf("Release %s %s: %d/%d platforms built\n",
		project.Name, result.Plan.Version, len(result.Bundle.Artifacts), len(result.Plan.Jobs))
	for _, a := range result.Bundle.Artifacts {
		fmt.Printf("  %-16s %s (%d bytes)\n", a.Platform, a.Checksum, a.Size)
	}
	if result.Published {
		fmt.Printf("Published to releases/%s\n", result.Plan.Version)
	} else {
		fmt.Println("Dry run: bundle validated, nothing published (use --publish)")
	}
}
