package internal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var versionPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

// Provisioner resolves an eligible worker runtime and prepares the isolated
// environment the worker package runs in. Provision is safe to call on every
// session start: each step checks before acting, so partial prior
// provisioning is completed rather than repeated.
type Provisioner struct {
	// Candidates is the ordered list of runtime executables to probe; the
	// first one meeting MinVersion wins.
	Candidates []string
	MinVersion *semver.Version
	// EnvDir is the isolated environment created for the worker package.
	EnvDir string
	// Package is the worker package installed into EnvDir; its installed
	// executable carries the same name.
	Package string

	// Injection points for tests. Nil values fall back to the real
	// implementations.
	LookPath  func(name string) (string, error)
	RunOutput func(ctx context.Context, name string, args ...string) (string, error)
	Run       func(ctx context.Context, name string, args ...string) error
}

// Provision ensures a runtime, environment, and worker package exist and
// returns the path of the worker executable. Any failure is fatal for this
// call and wrapped with the underlying message; nothing is left running.
func (p *Provisioner) Provision(ctx context.Context) (string, error) {
	runtimePath, err := p.resolveRuntime(ctx)
	if err != nil {
		return "", err
	}

	if err := p.ensureEnv(ctx, runtimePath); err != nil {
		return "", err
	}

	if err := p.ensurePackage(ctx); err != nil {
		return "", err
	}

	return p.WorkerPath(), nil
}

// WorkerPath returns where the worker executable lives once provisioned.
func (p *Provisioner) WorkerPath() string {
	return filepath.Join(p.EnvDir, "bin", p.Package)
}

// resolveRuntime probes the candidate executables in order and accepts the
// first whose reported version satisfies the minimum.
func (p *Provisioner) resolveRuntime(ctx context.Context) (string, error) {
	for _, candidate := range p.Candidates {
		path, err := p.lookPath(candidate)
		if err != nil {
			LogDebug("Runtime candidate %s not found: %v", candidate, err)
			continue
		}

		out, err := p.runOutput(ctx, path, "--version")
		if err != nil {
			LogDebug("Runtime candidate %s failed version probe: %v", path, err)
			continue
		}

		version, err := ParseRuntimeVersion(out)
		if err != nil {
			LogDebug("Runtime candidate %s: %v", path, err)
			continue
		}

		if version.LessThan(p.MinVersion) {
			LogDebug("Runtime candidate %s version %s below minimum %s", path, version, p.MinVersion)
			continue
		}

		LogInfo("Using runtime %s (version %s)", path, version)
		return path, nil
	}

	return "", &ProvisionError{Step: "runtime", Err: fmt.Errorf(
		"no runtime found meeting minimum version %s (probed: %s)",
		p.MinVersion, strings.Join(p.Candidates, ", "))}
}

// ensureEnv creates the isolated environment if it does not exist yet.
func (p *Provisioner) ensureEnv(ctx context.Context, runtimePath string) error {
	if _, err := os.Stat(filepath.Join(p.EnvDir, "bin")); err == nil {
		return nil
	}

	LogInfo("Creating environment in %s", p.EnvDir)
	if err := os.MkdirAll(filepath.Dir(p.EnvDir), 0o755); err != nil {
		return &ProvisionError{Step: "environment", Err: err}
	}
	if err := p.run(ctx, runtimePath, "-m", "venv", p.EnvDir); err != nil {
		return &ProvisionError{Step: "environment", Err: err}
	}
	return nil
}

// ensurePackage installs the worker package into the environment. The
// installer is idempotent, so re-running after a partial install is safe.
func (p *Provisioner) ensurePackage(ctx context.Context) error {
	if _, err := os.Stat(p.WorkerPath()); err == nil {
		return nil
	}

	LogInfo("Installing %s into %s", p.Package, p.EnvDir)
	pip := filepath.Join(p.EnvDir, "bin", "pip")
	if err := p.run(ctx, pip, "install", p.Package); err != nil {
		return &ProvisionError{Step: "package", Err: err}
	}
	return nil
}

// ParseRuntimeVersion extracts the first dotted version from a runtime's
// --version output.
func ParseRuntimeVersion(out string) (*semver.Version, error) {
	match := versionPattern.FindString(out)
	if match == "" {
		return nil, fmt.Errorf("no version in output %q", strings.TrimSpace(out))
	}
	version, err := semver.NewVersion(match)
	if err != nil {
		return nil, fmt.Errorf("unparseable version %q: %w", match, err)
	}
	return version, nil
}

func (p *Provisioner) lookPath(name string) (string, error) {
	if p.LookPath != nil {
		return p.LookPath(name)
	}
	return exec.LookPath(name)
}

func (p *Provisioner) runOutput(ctx context.Context, name string, args ...string) (string, error) {
	if p.RunOutput != nil {
		return p.RunOutput(ctx, name, args...)
	}
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

func (p *Provisioner) run(ctx context.Context, name string, args ...string) error {
	if p.Run != nil {
		return p.Run(ctx, name, args...)
	}
	if out, err := exec.CommandContext(ctx, name, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
