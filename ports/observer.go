package ports

import "crisiswatch/domain/core"

// RunObserver receives progress events as a run moves through its stages.
// Implementations must be safe for concurrent use: the parallel branch
// reports from two goroutines.
type RunObserver interface {
	StageStarted(runID core.RunID, stage string)
	StageFinished(runID core.RunID, stage string, err error)
}

// NopObserver discards all events
type NopObserver struct{}

func (NopObserver) StageStarted(core.RunID, string)         {}
func (NopObserver) StageFinished(core.RunID, string, error) {}
