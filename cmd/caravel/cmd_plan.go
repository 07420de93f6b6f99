package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	orchestrators "github.com/caravel-build/caravel/internal/domain-orchestrators"
	"github.com/caravel-build/caravel/internal/domain/entities"
	"github.com/caravel-build/caravel/internal/domain/interfaces"
	"github.com/caravel-build/caravel/internal/external-adapters/yaml"
)

func runPlan(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	var (
		version      = fs.String("version", "", "Release version tag (defaults to the project version)")
		platformsCSV = fs.String("platforms", "", "Comma-separated target platforms (defaults to all configured)")
		configDir    = fs.String("config", ".", "Project directory containing project.yml and caravel.lock")
		outputRoot   = fs.String("output-root", defaultOutputRoot(), "Root directory for the vendor store and build outputs")
		verbose      = fs.Bool("verbose", false, "Enable debug logging")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: caravel plan [options]

Finalize the vendor snapshot and compile the per-platform build plan without
dispatching any build.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	logger := &interfaces.StderrLogger{Verbose: *verbose}

	var project *entities.Project
	var snapshot *entities.VendorSnapshot
	if vendoredMode() {
		result, err := vendorProject(ctx, *configDir, *outputRoot, logger)
		if err != nil {
			fail(err)
		}
		project = result.Project
		snapshot = result.Snapshot
	} else {
		var err error
		project, err = yaml.NewProjectRepository(*configDir).LoadProject(ctx)
		if err != nil {
			fail(err)
		}
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
	}

	orch := orchestrators.NewReleaseOrchestrator(nil, nil, nil, logger)
	plan, err := orch.Plan(project, snapshot, req)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Build plan for %s %s (%d jobs):\n", project.Name, plan.Version, len(plan.Jobs))
	for _, job := range plan.Jobs {
		fmt.Printf("  %-16s target=%s work=%s\n", job.Platform, job.Target, job.WorkDir)
	}
}
