package platform

import "testing"

func TestOperatingSystem_AdoptiumName(t *testing.T) {
	cases := []struct {
		os   OperatingSystem
		want string
	}{
		{Windows, "windows"},
		{Linux, "linux"},
		{MacOS, "mac"},
	}
	for _, tc := range cases {
		if got := tc.os.AdoptiumName(); got != tc.want {
			t.Errorf("%s.AdoptiumName() = %q, want %q", tc.os, got, tc.want)
		}
	}
}

func TestOperatingSystem_PathSeparator(t *testing.T) {
	if Windows.PathSeparator() != ";" {
		t.Error("expected ; on windows")
	}
	if Linux.PathSeparator() != ":" {
		t.Error("expected : on linux")
	}
	if MacOS.PathSeparator() != ":" {
		t.Error("expected : on macOS")
	}
}

func TestArchitecture_AdoptiumName(t *testing.T) {
	cases := []struct {
		arch Architecture
		want string
	}{
		{X86_64, "x64"},
		{Aarch64, "aarch64"},
		{X86, "x86"},
	}
	for _, tc := range cases {
		if got := tc.arch.AdoptiumName(); got != tc.want {
			t.Errorf("%s.AdoptiumName() = %q, want %q", tc.arch, got, tc.want)
		}
	}
}

func TestProbe_MemoryForPercent(t *testing.T) {
	p := Probe{TotalMemoryMB: 16000}
	if got := p.MemoryForPercent(50); got != 8000 {
		t.Errorf("MemoryForPercent(50) = %d, want 8000", got)
	}
	if got := p.MemoryForPercent(0); got != 160 {
		t.Errorf("MemoryForPercent(0) should clamp to 1%%, got %d", got)
	}
	if got := p.MemoryForPercent(200); got != 16000 {
		t.Errorf("MemoryForPercent(200) should clamp to 100%%, got %d", got)
	}
}
