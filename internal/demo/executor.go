package demo

import (
	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// OnFinishedFunc reports a task outcome back into the tracker; it is
// JobTracker.OnTaskFinished, wired in at construction to avoid a cyclic
// import between demo and tracker.
type OnFinishedFunc func(task core.TaskInfo, status core.TaskStatus, counters core.Counters)
