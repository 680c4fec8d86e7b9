// Package preflight verifies run-level preconditions before any
// per-clip work starts: the external media tools must resolve, the
// encoder must be reachable, and the directories must be usable.
// Failures here are fatal for the whole run.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Pinger is satisfied by encoders that can probe their backing daemon.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckBinary verifies an external tool resolves on PATH.
func CheckBinary(name, binary string) Result {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = name
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found on PATH", binary)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckEncoder verifies the encoder daemon answers.
func CheckEncoder(ctx context.Context, p Pinger) Result {
	if p == nil {
		return Result{Name: "encoder", Passed: true, Detail: "stub encoder, nothing to reach"}
	}
	if err := p.Ping(ctx); err != nil {
		return Result{Name: "encoder", Detail: err.Error()}
	}
	return Result{Name: "encoder", Passed: true, Detail: "daemon reachable"}
}

// CheckAssetsDir verifies the input directory exists.
func CheckAssetsDir(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: "assets directory", Detail: fmt.Sprintf("%s: %v", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: "assets directory", Detail: fmt.Sprintf("%s is not a directory", path)}
	}
	return Result{Name: "assets directory", Passed: true, Detail: path}
}

// CheckOutputDir verifies the output directory is writable, creating it
// when absent.
func CheckOutputDir(path string) Result {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: "output directory", Detail: fmt.Sprintf("%s: %v", path, err)}
	}
	probe, err := os.CreateTemp(path, ".preflight-*")
	if err != nil {
		return Result{Name: "output directory", Detail: fmt.Sprintf("%s not writable: %v", path, err)}
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return Result{Name: "output directory", Passed: true, Detail: path}
}

// Failed collects the failing results, or nil when all passed.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Error renders failing results as a single error, or nil.
func Error(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, len(failed))
	for i, r := range failed {
		parts[i] = fmt.Sprintf("%s: %s", r.Name, r.Detail)
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
}
