package supervisor

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/riftlabs/corelaunch/internal/corerr"
	"github.com/riftlabs/corelaunch/internal/launch"
)

// forcefulKillExitCode is the code Windows reports when a process is
// killed forcefully; alongside 0 it is treated as a normal exit rather
// than a launch failure.
const forcefulKillExitCode = -1073740791

// Supervisor spawns launch.Plans, registers them in a Registry, pumps
// their stdout/stderr, and honours per-instance cancellation alongside
// its caller's context. It implements launch.Supervisor.
type Supervisor struct {
	registry *Registry
	onOutput OutputFunc
}

// New builds a Supervisor backed by registry. onOutput may be nil, in
// which case output is read and discarded (still required to keep the
// pipes from filling).
func New(registry *Registry, onOutput OutputFunc) *Supervisor {
	return &Supervisor{registry: registry, onOutput: onOutput}
}

type outputChunk struct {
	stream OutputStream
	data   []byte
}

// Spawn starts plan's java process, registers it, and blocks until the
// child exits, ctx is cancelled, or the instance's terminator fires
// (via Registry.Cancel) — whichever happens first.
func (s *Supervisor) Spawn(ctx context.Context, instanceID string, plan launch.Plan) error {
	cmd := exec.Command(plan.JavaPath, plan.Args...)
	cmd.Dir = plan.GameDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return corerr.New(corerr.KindOther, "attaching stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return corerr.New(corerr.KindOther, "attaching stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return corerr.New(corerr.KindOther, "starting java process", err)
	}

	terminator := make(chan struct{})
	inst := RunnerInstance{
		ID:        instanceID,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
	}
	if err := s.registry.Register(inst, terminator); err != nil {
		_ = cmd.Process.Kill()
		return err
	}
	defer s.registry.Remove(instanceID)

	chunks := make(chan outputChunk, 16)
	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() { defer pumps.Done(); pumpOutput(stdout, Stdout, chunks) }()
	go func() { defer pumps.Done(); pumpOutput(stderr, Stderr, chunks) }()
	go func() { pumps.Wait(); close(chunks) }()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil // both producers closed; stop selecting on it
				continue
			}
			if s.onOutput != nil {
				s.onOutput(instanceID, chunk.stream, chunk.data)
			}
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			<-done
			return corerr.New(corerr.KindCancelled, "launch cancelled", ctx.Err())
		case <-terminator:
			_ = cmd.Process.Kill()
			<-done
			return nil
		case waitErr := <-done:
			return interpretExit(waitErr)
		}
	}
}

// pumpOutput reads up to 1024 bytes at a time from r, forwarding each
// non-empty read as a chunk until EOF. The caller closes out once every
// pump sharing it has returned.
func pumpOutput(r io.Reader, stream OutputStream, out chan<- outputChunk) {
	buf := make([]byte, 1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- outputChunk{stream: stream, data: chunk}
		}
		if err != nil {
			return
		}
	}
}

// interpretExit maps cmd.Wait()'s error to the engine's normal-exit
// policy: a nil error, or an ExitError whose code is 0 or the Windows
// forceful-kill sentinel, is not a failure.
func interpretExit(waitErr error) error {
	if waitErr == nil {
		return nil
	}
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return corerr.New(corerr.KindOther, "waiting for java process", waitErr)
	}
	code := exitErr.ExitCode()
	if code == 0 || int32(code) == forcefulKillExitCode {
		return nil
	}
	return corerr.New(corerr.KindOther, "java process exited with a non-zero code", exitErr)
}
