package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// runShellEntry runs argv with script appended as its final argument,
// capturing combined stdout+stderr into a bounded buffer. Grounded on
// the teacher's exec manager's buildCommand/runSync pattern.
func runShellEntry(ctx context.Context, argv []string, script string, maxOutput int, timeout time.Duration) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("sandbox: entry command is required")
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := append(append([]string{}, argv[1:]...), script)
	cmd := exec.CommandContext(runCtx, argv[0], args...)

	buf := newBoundedBuffer(maxOutput)
	cmd.Stdout = buf
	cmd.Stderr = buf

	if err := cmd.Run(); err != nil {
		return buf.String(), fmt.Errorf("sandbox: script exited with error: %w", err)
	}
	return buf.String(), nil
}
