//go:build linux

package supervisor

import (
	"strings"

	"github.com/prometheus/procfs"
)

// processRunsJava reports whether pid exists and its command name
// contains "java", matching the original launcher's sysinfo-based check
// (ProcessExt::name().contains("java")).
func processRunsJava(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := procfs.NewProc(pid)
	if err != nil {
		return false
	}
	comm, err := proc.Comm()
	if err != nil {
		return false
	}
	if strings.Contains(comm, "java") {
		return true
	}
	cmdline, err := proc.CmdLine()
	if err != nil {
		return false
	}
	return len(cmdline) > 0 && strings.Contains(cmdline[0], "java")
}
