package supervisor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/riftlabs/corelaunch/internal/corerr"
)

// Registry is the in-memory + on-disk table of RunnerInstances. It is
// safe for concurrent use; every mutation is followed by a full rewrite
// of the backing file so the list survives a crash (per the "serialised
// on every progress update" discipline).
type Registry struct {
	mu          sync.Mutex
	path        string
	instances   map[string]RunnerInstance
	terminators map[string]chan struct{}
}

// NewRegistry opens the registry backed by running_instances.json under
// dataDir, without touching disk yet (see LoadAndReconcile).
func NewRegistry(dataDir string) *Registry {
	return &Registry{
		path:        filepath.Join(dataDir, "running_instances.json"),
		instances:   make(map[string]RunnerInstance),
		terminators: make(map[string]chan struct{}),
	}
}

// LoadAndReconcile deserialises running_instances.json (if present) and
// retains only entries whose pid still exists and still looks like a
// Java process — the liveness-across-restart check. The pruned list is
// immediately re-persisted.
func (r *Registry) LoadAndReconcile() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return corerr.New(corerr.KindFilesystem, "reading running instances", err)
	}

	var stored []RunnerInstance
	if err := json.Unmarshal(raw, &stored); err != nil {
		return corerr.New(corerr.KindJSON, "parsing running instances", err)
	}

	for _, inst := range stored {
		if !processRunsJava(inst.PID) {
			continue
		}
		inst.IsAttached = false // nothing spawned in this process has a terminator yet
		r.instances[inst.ID] = inst
	}
	return r.persistLocked()
}

// Register records a freshly spawned instance and persists the table.
func (r *Registry) Register(inst RunnerInstance, terminator chan struct{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst.IsAttached = true
	r.instances[inst.ID] = inst
	r.terminators[inst.ID] = terminator
	return r.persistLocked()
}

// Remove drops an instance (the child has exited) and persists the table.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, id)
	delete(r.terminators, id)
	return r.persistLocked()
}

// List returns a snapshot of every tracked instance.
func (r *Registry) List() []RunnerInstance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RunnerInstance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}
	return out
}

// Cancel signals the one-shot terminator for id, causing its Supervisor
// goroutine to kill the child. It is a no-op (not an error) if id is not
// held by this process — e.g. it belongs to a prior launcher session and
// can only be observed, not controlled, until it exits on its own.
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	ch, ok := r.terminators[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-ch:
		// already closed/signalled
	default:
		close(ch)
	}
	return nil
}

func (r *Registry) persistLocked() error {
	list := make([]RunnerInstance, 0, len(r.instances))
	for _, inst := range r.instances {
		list = append(list, inst)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return corerr.New(corerr.KindJSON, "serialising running instances", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return corerr.New(corerr.KindFilesystem, "writing running instances", err)
	}
	return nil
}
