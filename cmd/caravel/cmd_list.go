package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/caravel-build/caravel/internal/external-adapters/yaml"
)

func runList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configDir := fs.String("config", ".", "Project directory containing project.yml and caravel.lock")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: caravel list [options]

Show the project configuration: binary, auxiliary files, target platforms,
and the locked dependency set.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	repo := yaml.NewProjectRepository(*configDir)

	project, err := repo.LoadProject(ctx)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Project:  %s %s\n", project.Name, project.Version)
	fmt.Printf("Binary:   %s\n", project.Binary)
	if len(project.Scripts) > 0 {
		fmt.Printf("Scripts:  %s\n", strings.Join(project.Scripts, ", "))
	}

	fmt.Println("Platforms:")
	for _, name := range project.PlatformNames() {
		fmt.Printf("  %-16s %s\n", name, project.Platforms[name].Target)
	}

	if len(project.Dependencies) > 0 {
		fmt.Println("Dependencies:")
		deps := make([]string, 0, len(project.Dependencies))
		for _, d := range project.Dependencies {
			constraint := d.Constraint
			if constraint == "" {
				constraint = "*"
			}
			deps = append(deps, fmt.Sprintf("  %-24s %s", d.Name, constraint))
		}
		sort.Strings(deps)
		for _, line := range deps {
			fmt.Println(line)
		}
	}

	lock, err := repo.LoadLockfile(ctx)
	if err != nil {
		fmt.Printf("Lockfile: none (%v)\n", err)
		return
	}
	fmt.Printf("Locked (%d):\n", len(lock.Dependencies))
	for _, d := range lock.Dependencies {
		fmt.Printf("  %-24s %-12s %s\n", d.Name, d.Version, d.Checksum)
	}
}
