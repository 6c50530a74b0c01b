// Package progress implements the Progress Bus (C11): a twelve-step
// model where each step owns a fixed 1024-unit slice of the overall
// progress range, fed to a channel the embedder drains for UI updates.
package progress

import "fmt"

// Step names the twelve stages a single launch can report progress for.
// The order here fixes each step's slice index (step·1024).
type Step int

const (
	StepDownloadBrandedMods Step = iota
	StepDownloadJRE
	StepDownloadClientJar
	StepDownloadLibraries
	StepDownloadAssets
	StepDownloadBrandedAssets
	StepVerifyBrandedAssets
	StepDownloadShader
	StepDownloadResourcePack
	StepDownloadDatapack
	StepDownloadCustomServerJar
	StepDownloadCustomServerInstallerJar

	stepCount
)

// PerStep is the number of progress units each Step owns.
const PerStep = 1024

func (s Step) String() string {
	names := [...]string{
		"DownloadBrandedMods",
		"DownloadJRE",
		"DownloadClientJar",
		"DownloadLibraries",
		"DownloadAssets",
		"DownloadBrandedAssets",
		"VerifyBrandedAssets",
		"DownloadShader",
		"DownloadResourcePack",
		"DownloadDatapack",
		"DownloadCustomServerJar",
		"DownloadCustomServerInstallerJar",
	}
	if int(s) < 0 || int(s) >= len(names) {
		return "Unknown"
	}
	return names[s]
}

// UpdateKind tags the variant of an Update.
type UpdateKind int

const (
	KindSetMax UpdateKind = iota
	KindSetProgress
	KindSetLabel
)

// Update is one tagged ProgressUpdate emission.
type Update struct {
	Kind     UpdateKind
	Max      uint64
	Progress uint64
	Label    string
}

// Bus maps per-step progress into the flat 12×1024 range and forwards
// tagged updates on Updates. It holds no global state; callers construct
// one per launch and thread it through explicitly.
type Bus struct {
	Updates chan Update

	steps [stepCount]stepState
}

type stepState struct {
	max uint64
	cur uint64
}

// New creates a Bus whose Updates channel has the given buffer size.
func New(bufferSize int) *Bus {
	return &Bus{Updates: make(chan Update, bufferSize)}
}

// SetMax records the maximum value for step and emits the absolute
// 12×1024-scale SetMax update.
func (b *Bus) SetMax(step Step, max uint64) {
	b.steps[step].max = max
	b.steps[step].cur = 0
	b.emit(Update{Kind: KindSetMax, Max: uint64(stepCount) * PerStep})
	b.emitProgress(step)
}

// SetProgress records the current value for step (0..max) and emits the
// absolute 12×1024-scale SetProgress update: step·1024 + cur·1024/max.
func (b *Bus) SetProgress(step Step, cur uint64) {
	b.steps[step].cur = cur
	b.emitProgress(step)
}

// SetLabel emits an opaque i18n-key label, optionally with "&param%value"
// suffixes for parameters.
func (b *Bus) SetLabel(key string, params map[string]string) {
	label := key
	for k, v := range params {
		label += fmt.Sprintf("&%s%%%s", k, v)
	}
	b.emit(Update{Kind: KindSetLabel, Label: label})
}

func (b *Bus) emitProgress(step Step) {
	s := b.steps[step]
	var withinStep uint64
	if s.max > 0 {
		withinStep = s.cur * PerStep / s.max
		if withinStep > PerStep {
			withinStep = PerStep
		}
	}
	absolute := uint64(step)*PerStep + withinStep
	b.emit(Update{Kind: KindSetProgress, Progress: absolute})
}

func (b *Bus) emit(u Update) {
	select {
	case b.Updates <- u:
	default:
		// Non-blocking: a slow/absent consumer must never stall the
		// launch pipeline. Drop the update; SetProgress is cumulative
		// and a subsequent emission will carry the latest value.
	}
}

// Close closes the Updates channel. Callers must ensure no further
// Set* calls occur afterward.
func (b *Bus) Close() {
	close(b.Updates)
}

// TotalUnits is the size of the full progress range (12 × 1024).
func TotalUnits() uint64 {
	return uint64(stepCount) * PerStep
}
