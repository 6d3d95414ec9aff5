package demo

import (
	"sync"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// JobDirectory shares each job's local staging directory between the
// LocalJob that creates it and the LocalExecutor that writes and reads
// intermediate shuffle files inside it, so the two can stay decoupled
// from one another.
type JobDirectory struct {
	mu   sync.RWMutex
	dirs map[core.JobId]string
}

func NewJobDirectory() *JobDirectory {
	return &JobDirectory{dirs: make(map[core.JobId]string)}
}

func (d *JobDirectory) set(jobId core.JobId, dir string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirs[jobId] = dir
}

func (d *JobDirectory) get(jobId core.JobId) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dir, ok := d.dirs[jobId]
	return dir, ok
}

func (d *JobDirectory) remove(jobId core.JobId) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.dirs, jobId)
}
