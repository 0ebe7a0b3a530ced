// Package procguard spawns child processes in their own process group and
// kills the whole group on abort, so that a shell-script stage which
// forks grandchildren of its own cannot outlive the request that started
// it.
package procguard

import "os/exec"

// Prepare marks cmd so that, once started, Kill can reach every process it
// transitively forks.
func Prepare(cmd *exec.Cmd) {
	prepare(cmd)
}

// Kill terminates cmd's entire process group. Best-effort and safe to call
// on a process that has already exited.
func Kill(cmd *exec.Cmd) {
	kill(cmd)
}
