//go:build !unix

package download

import "os/exec"

// Process groups are a unix notion; elsewhere only the direct child is
// killed on cancel and WaitDelay bounds the wait for its pipes.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) error {
	return nil
}
