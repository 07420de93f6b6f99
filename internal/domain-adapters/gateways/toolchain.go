package gateways

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/caravel-build/caravel/internal/domain/entities"
	"github.com/caravel-build/caravel/internal/domain/interfaces"
)

// ToolchainRunner invokes the platform compilation toolchain for one build
// job. Each invocation gets the job's own working directory; nothing is
// shared between concurrent jobs.
type ToolchainRunner struct {
	projectDir     string
	defaultTimeout time.Duration
	logger         interfaces.Logger
}

// NewToolchainRunner creates a runner executing the toolchain from projectDir.
func NewToolchainRunner(projectDir string, logger interfaces.Logger) *ToolchainRunner {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ToolchainRunner{
		projectDir:     projectDir,
		defaultTimeout: 30 * time.Minute,
		logger:         logger,
	}
}

// Run compiles the project for the job's target platform and returns the
// path of the produced binary. In vendored mode the toolchain's offline
// arguments are appended, so the build never resolves against the network.
func (r *ToolchainRunner) Run(ctx context.Context, project *entities.Project, job *entities.BuildJob, vendored bool) (string, error) {
	tc := project.Toolchain
	if tc.Command == "" {
		return "", fmt.Errorf("project %s declares no toolchain command", project.Name)
	}
	if _, err := exec.LookPath(tc.Command); err != nil {
		return "", fmt.Errorf("toolchain %q is not available: %w", tc.Command, err)
	}

	expand := jobReplacer(project, job)
	args := make([]string, 0, len(tc.Args)+len(tc.OfflineArgs))
	for _, a := range tc.Args {
		args = append(args, expand.Replace(a))
	}
	if vendored {
		for _, a := range tc.OfflineArgs {
			args = append(args, expand.Replace(a))
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, r.defaultTimeout)
	defer cancel()

	//nolint:gosec // G204: toolchain invocation is controlled by project configuration
	cmd := exec.CommandContext(execCtx, tc.Command, args...)
	cmd.Dir = r.projectDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Info("invoking toolchain",
		interfaces.F("platform", job.Platform),
		interfaces.F("command", tc.Command),
		interfaces.F("target", job.Target))

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail != "" {
			return "", fmt.Errorf("toolchain failed for target %s: %w: %s", job.Target, err, detail)
		}
		return "", fmt.Errorf("toolchain failed for target %s: %w", job.Target, err)
	}

	binary := expand.Replace(tc.BinaryPath)
	if _, err := os.Stat(binary); err != nil {
		return "", fmt.Errorf("toolchain produced no binary at %s: %w", binary, err)
	}
	return binary, nil
}

// jobReplacer expands the {target}, {work_dir} and {binary} placeholders in
// toolchain configuration for one job.
func jobReplacer(project *entities.Project, job *entities.BuildJob) *strings.Replacer {
	return strings.NewReplacer(
		"{target}", job.Target,
		"{work_dir}", job.WorkDir,
		"{binary}", project.Binary,
	)
}
