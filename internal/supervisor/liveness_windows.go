//go:build windows

package supervisor

import "os"

// processRunsJava treats a successful os.FindProcess as liveness: unlike
// Unix, Windows' FindProcess opens a real handle and fails when pid does
// not exist. We cannot cheaply read the image name from the standard
// library alone, so a live pid is assumed to still be the Java child.
func processRunsJava(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
