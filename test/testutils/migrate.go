package testutils

import (
	"context"
	"fmt"
	"os/exec"

	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega/gexec"
)

// MigrateToLatest runs `platereg migrate` against dbURL and waits for it to
// exit successfully.
func MigrateToLatest(ctx context.Context, binaryPath string, dbURL string) (err error) {
	migrateCmd := exec.Command(
		binaryPath,
		"migrate",
		"--db-url", dbURL,
		"--to", "latest")
	session, err := gexec.Start(migrateCmd, GinkgoWriter, GinkgoWriter)
	if err != nil {
		err = fmt.Errorf("failed to run command: %w", err)
		return
	}
	select {
	case <-session.Exited:
		if session.ExitCode() != 0 {
			err = fmt.Errorf("exited with non-zero code %d", session.ExitCode())
			return
		}
	case <-ctx.Done():
		session.Kill()
		err = fmt.Errorf("context cancelled: %w", context.Cause(ctx))
		return
	}
	return
}
