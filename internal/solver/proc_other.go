//go:build !unix

package solver

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}
