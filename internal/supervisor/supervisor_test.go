package supervisor

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/riftlabs/corelaunch/internal/launch"
)

func TestInterpretExit_NilErrorIsSuccess(t *testing.T) {
	if err := interpretExit(nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestInterpretExit_NonExitErrorSurfaces(t *testing.T) {
	err := interpretExit(errors.New("boom"))
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestSpawn_NormalExitSucceeds(t *testing.T) {
	tmp := t.TempDir()
	reg := NewRegistry(tmp)
	if err := reg.LoadAndReconcile(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var chunks []outputChunk
	sup := New(reg, func(id string, stream OutputStream, chunk []byte) {
		chunks = append(chunks, outputChunk{stream: stream, data: append([]byte(nil), chunk...)})
	})

	plan := launch.Plan{JavaPath: "/bin/echo", Args: []string{"hello"}, GameDir: tmp}
	if _, err := exec.LookPath(plan.JavaPath); err != nil {
		t.Skip("/bin/echo not available in this environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sup.Spawn(ctx, "inst-1", plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reg.List()) != 0 {
		t.Errorf("instance should be removed from the registry after exit, got %v", reg.List())
	}
}

func TestSpawn_ContextCancellationKillsChild(t *testing.T) {
	tmp := t.TempDir()
	reg := NewRegistry(tmp)

	sup := New(reg, nil)
	plan := launch.Plan{JavaPath: "/bin/sleep", Args: []string{"30"}, GameDir: tmp}
	if _, err := exec.LookPath(plan.JavaPath); err != nil {
		t.Skip("/bin/sleep not available in this environment")
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sup.Spawn(ctx, "inst-2", plan) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected a cancellation error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Spawn did not return after context cancellation")
	}
}

func TestRegistry_CancelSignalsTerminator(t *testing.T) {
	tmp := t.TempDir()
	reg := NewRegistry(tmp)
	terminator := make(chan struct{})
	if err := reg.Register(RunnerInstance{ID: "inst-3", PID: 1}, terminator); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := reg.Cancel("inst-3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-terminator:
	default:
		t.Error("expected terminator channel to be closed")
	}

	// Cancelling twice, or cancelling an unknown instance, must not panic.
	if err := reg.Cancel("inst-3"); err != nil {
		t.Fatalf("unexpected error on second cancel: %v", err)
	}
	if err := reg.Cancel("does-not-exist"); err != nil {
		t.Fatalf("unexpected error cancelling an unknown instance: %v", err)
	}
}

func TestRegistry_LoadAndReconcilePrunesDeadPIDs(t *testing.T) {
	tmp := t.TempDir()
	reg := NewRegistry(tmp)
	// PID 0 never passes processRunsJava, whatever the platform's check.
	if err := reg.Register(RunnerInstance{ID: "dead", PID: 0}, make(chan struct{})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded := NewRegistry(tmp)
	if err := reloaded.LoadAndReconcile(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reloaded.List()) != 0 {
		t.Errorf("expected dead pid to be pruned, got %v", reloaded.List())
	}
}
