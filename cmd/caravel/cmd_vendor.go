package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caravel-build/caravel/internal/domain-adapters/gateways"
	orchestrators "github.com/caravel-build/caravel/internal/domain-orchestrators"
	"github.com/caravel-build/caravel/internal/domain/interfaces"
	"github.com/caravel-build/caravel/internal/domain/services"
	"github.com/caravel-build/caravel/internal/external-adapters/yaml"
)

func runVendor(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("vendor", flag.ExitOnError)
	var (
		configDir  = fs.String("config", ".", "Project directory containing project.yml and caravel.lock")
		outputRoot = fs.String("output-root", defaultOutputRoot(), "Root directory for the vendor store and build outputs")
		verbose    = fs.Bool("verbose", false, "Enable debug logging")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: caravel vendor [options]

Resolve the project's locked dependency graph, materialize every source tree
into the local vendor store, and write the vendor manifest.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	logger := &interfaces.StderrLogger{Verbose: *verbose}
	result, err := vendorProject(ctx, *configDir, *outputRoot, logger)
	if err != nil {
		fail(err)
	}

	manifestPath := filepath.Join(*outputRoot, gateways.ManifestFileName)
	if err := os.WriteFile(manifestPath, result.ManifestBytes, 0600); err != nil {
		fail(fmt.Errorf("failed to write vendor manifest: %w", err))
	}

	fmt.Printf("Vendored %d dependencies into %s\n", len(result.Snapshot.Entries), result.Snapshot.Root)
	for _, record := range result.Manifest.Records {
		license := record.License
		if license == "" {
			license = "unknown"
		}
		fmt.Printf("  %s %s (%s) %s\n", record.Name, record.Version, license, record.Checksum)
	}
	fmt.Printf("Manifest written to %s\n", manifestPath)
}

// vendorProject wires the vendor pipeline for a project directory and runs it.
func vendorProject(ctx context.Context, configDir, outputRoot string, logger interfaces.Logger) (*orchestrators.VendorResult, error) {
	repo := yaml.NewProjectRepository(configDir)
	project, err := repo.LoadProject(ctx)
	if err != nil {
		return nil, err
	}

	catalogDir := project.CatalogDir
	if !filepath.IsAbs(catalogDir) {
		catalogDir = filepath.Join(project.Dir, catalogDir)
	}
	vendorRoot := filepath.Join(outputRoot, "vendor")

	resolver := gateways.NewResolver(catalogDir, vendorRoot, repo, logger)
	orch := orchestrators.NewVendorOrchestrator(repo, resolver, services.NewManifestService(), logger)
	return orch.Vendor(ctx)
}
