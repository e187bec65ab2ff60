//go:build !unix

package tool

import (
	"os"
	"os/exec"
	"time"
)

func killProcessGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = 2 * time.Second
}

func exitStatus(ps *os.ProcessState) int {
	return ps.ExitCode()
}
