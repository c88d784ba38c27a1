//go:build !windows

package proc

import (
	"os"
	"os/exec"
	"syscall"
)

// Detach puts the child in its own process group so signals to the CLI don't
// reach it and the group can be killed as a unit on shutdown.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// Terminate asks the process to exit gracefully.
func Terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// Kill force-kills the process.
func Kill(p *os.Process) {
	p.Signal(syscall.SIGKILL)
}

// KillGroup catches children the process spawned under its group.
func KillGroup(pid int) {
	syscall.Kill(-pid, syscall.SIGKILL)
}
