//go:build !unix

package docgen

import "os/exec"

func startInOwnGroup(cmd *exec.Cmd) {}

func killGroup(cmd *exec.Cmd) error {
	return nil
}
