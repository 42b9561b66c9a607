package helm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/log"
)

const defaultCommandTimeout = 600 * time.Second

// InstallRequest describes one chart installation
type InstallRequest struct {
	Release         string
	ChartPath       string
	Namespace       string
	CreateNamespace bool
	Values          map[string]string
}

// InstallResult reports the outcome of an install call
type InstallResult struct {
	AlreadyExists bool
	Installed     bool
	Output        string
}

// UninstallResult reports the outcome of an uninstall call
type UninstallResult struct {
	AlreadyRemoved bool
	Uninstalled    bool
}

// Helm wraps the helm binary. Every call runs a fresh process with its own
// timeout; no state is shared between calls.
type Helm struct {
	binary  string
	timeout time.Duration
	logger  zerolog.Logger
}

// Option configures the Helm wrapper
type Option func(*Helm)

// WithBinary overrides the helm binary path
func WithBinary(path string) Option {
	return func(h *Helm) { h.binary = path }
}

// WithTimeout overrides the per-command timeout
func WithTimeout(d time.Duration) Option {
	return func(h *Helm) { h.timeout = d }
}

// New creates a Helm wrapper
func New(opts ...Option) *Helm {
	h := &Helm{
		binary:  "helm",
		timeout: defaultCommandTimeout,
		logger:  log.WithComponent("helm"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Install installs a chart release. Install is idempotent: if the release
// already exists the call short-circuits so readiness polling can proceed.
// No --wait or --atomic is passed; chart init jobs may take minutes and
// readiness is observed separately by the provisioner.
func (h *Helm) Install(ctx context.Context, req InstallRequest) (InstallResult, error) {
	exists, err := h.ReleaseExists(ctx, req.Release, req.Namespace)
	if err != nil {
		return InstallResult{}, err
	}
	if exists {
		h.logger.Info().
			Str("release", req.Release).
			Str("namespace", req.Namespace).
			Msg("Release already exists, skipping install")
		return InstallResult{AlreadyExists: true}, nil
	}

	args := []string{"install", req.Release, req.ChartPath, "--namespace", req.Namespace}
	if req.CreateNamespace {
		args = append(args, "--create-namespace")
	}

	if len(req.Values) > 0 {
		valuesFile, err := writeValuesFile(req.Release, req.Values)
		if err != nil {
			return InstallResult{}, err
		}
		defer os.Remove(valuesFile)
		args = append(args, "-f", valuesFile)
	}

	output, err := h.run(ctx, args...)
	if err != nil {
		return InstallResult{}, err
	}

	h.logger.Info().
		Str("release", req.Release).
		Str("namespace", req.Namespace).
		Str("chart", req.ChartPath).
		Msg("Release installed")
	return InstallResult{Installed: true, Output: output}, nil
}

// Uninstall removes a chart release, waiting for resource deletion.
// A missing release is not an error.
func (h *Helm) Uninstall(ctx context.Context, release, namespace string, wait bool) (UninstallResult, error) {
	args := []string{"uninstall", release, "--namespace", namespace}
	if wait {
		args = append(args, "--wait")
	}

	_, err := h.run(ctx, args...)
	if err != nil {
		if strings.Contains(err.Error(), "release: not found") {
			return UninstallResult{AlreadyRemoved: true}, nil
		}
		return UninstallResult{}, err
	}

	h.logger.Info().
		Str("release", release).
		Str("namespace", namespace).
		Msg("Release uninstalled")
	return UninstallResult{Uninstalled: true}, nil
}

// ReleaseExists checks whether a release is known to helm in the namespace
func (h *Helm) ReleaseExists(ctx context.Context, release, namespace string) (bool, error) {
	_, err := h.run(ctx, "status", release, "--namespace", namespace)
	if err != nil {
		if strings.Contains(err.Error(), "release: not found") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// run executes one helm command with the wrapper timeout and returns stdout.
// Failures surface stderr, which carries helm's actual diagnostic.
func (h *Helm) run(ctx context.Context, args ...string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, h.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	h.logger.Debug().Strs("args", args).Msg("Running helm command")

	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = err.Error()
		}
		return "", fmt.Errorf("Helm command failed: %s", message)
	}
	return stdout.String(), nil
}

// writeValuesFile renders dotted-key values into a nested YAML temp file.
// The caller removes the file when the command finishes.
func writeValuesFile(release string, values map[string]string) (string, error) {
	data, err := RenderValues(values)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", fmt.Sprintf("values-%s-*.yaml", release))
	if err != nil {
		return "", fmt.Errorf("failed to create values file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write values file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// coerceValue applies helm --set style typing: booleans and integers become
// typed YAML scalars, everything else stays a string.
func coerceValue(raw string) any {
	if raw == "true" {
		return true
	}
	if raw == "false" {
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
