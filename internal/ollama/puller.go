package ollama

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

// ErrNotVerified means 'ollama pull' exited zero but the model did not show
// up in the local store afterwards.
var ErrNotVerified = errors.New("model not present in local store after pull")

// PullResult is the outcome of one pull attempt.
type PullResult struct {
	Model    string
	Duration time.Duration
	Err      error
}

// OK reports whether the pull succeeded.
func (r PullResult) OK() bool {
	return r.Err == nil
}

// Verifier checks that a model actually landed in the local store.
// *Client satisfies this; tests inject fakes.
type Verifier interface {
	Has(ctx context.Context, name string) (bool, error)
}

// Puller runs 'ollama pull <model>' one model at a time. Pulls are strictly
// sequential and keep the configured order.
type Puller struct {
	Bin string
	Env []string

	// Stdout/Stderr receive the pull's progress output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// Verify, when set, confirms a zero-exit pull against the local store.
	// A verification error (API unreachable) does not fail the pull.
	Verify Verifier
}

// Pull downloads one model, blocking until the subprocess exits.
func (p *Puller) Pull(ctx context.Context, model string) PullResult {
	start := time.Now()

	cmd := exec.CommandContext(ctx, p.Bin, "pull", model)
	cmd.Env = p.Env
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr

	err := cmd.Run()
	if err == nil && p.Verify != nil {
		if ok, verr := p.Verify.Has(ctx, model); verr == nil && !ok {
			err = ErrNotVerified
		}
	}

	return PullResult{Model: model, Duration: time.Since(start), Err: err}
}

// PullAll pulls every model in order. With continueOnError the full list is
// attempted regardless of individual failures; otherwise the loop stops at
// the first failure and only the attempted results are returned.
func (p *Puller) PullAll(ctx context.Context, models []string, continueOnError bool) []PullResult {
	results := make([]PullResult, 0, len(models))
	for _, m := range models {
		res := p.Pull(ctx, m)
		results = append(results, res)
		if !res.OK() && !continueOnError {
			break
		}
	}
	return results
}

// Failed returns the models whose pull did not succeed.
func Failed(results []PullResult) []string {
	var out []string
	for _, r := range results {
		if !r.OK() {
			out = append(out, r.Model)
		}
	}
	return out
}
