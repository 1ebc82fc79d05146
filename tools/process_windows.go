//go:build windows

package tools

import "syscall"

const stillActive = 259

// isProcessRunning opens a query handle on pid and checks its exit code
func isProcessRunning(pid int) bool {
	const access = syscall.PROCESS_QUERY_INFORMATION | syscall.SYNCHRONIZE

	h, err := syscall.OpenProcess(access, false, uint32(pid))
	if err != nil {
		return false
	}
	defer syscall.CloseHandle(h)

	var code uint32
	if err := syscall.GetExitCodeProcess(h, &code); err != nil {
		// handle opened, assume alive
		return true
	}
	return code == stillActive
}
