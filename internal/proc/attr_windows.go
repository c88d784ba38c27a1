//go:build windows

package proc

import (
	"os"
	"os/exec"
)

func Detach(cmd *exec.Cmd) {}

func Terminate(p *os.Process) error {
	return p.Kill()
}

func Kill(p *os.Process) {
	p.Kill()
}

func KillGroup(pid int) {}
