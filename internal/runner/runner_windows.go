//go:build windows

package runner

import (
	"os"
	"os/exec"
)

func shellCommand(command string) (string, []string) {
	return "cmd", []string{"/C", command}
}

func configure(cmd *exec.Cmd) {}

// terminate kills outright: there is no SIGTERM to send.
func terminate(p *os.Process) error {
	return p.Kill()
}

func kill(p *os.Process) {
	p.Kill()
}
