// Package demo provides minimal, single-process collaborator
// implementations (Job, TaskExecutor, Shuffle, RuntimeContext) so a
// trackernode binary has something concrete to run against.
package demo

import (
	"fmt"
	"os"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// LocalJob is a minimal Job backed by a local staging directory. Its
// staging directory is published to dirs so a LocalExecutor can write and
// read intermediate shuffle output for the same job.
type LocalJob struct {
	id         core.JobId
	dirs       *JobDirectory
	stagingDir string
}

func NewLocalJob(id core.JobId, dirs *JobDirectory) *LocalJob {
	return &LocalJob{id: id, dirs: dirs}
}

func (j *LocalJob) Id() core.JobId {
	return j.id
}

func (j *LocalJob) Initialize(localNodeId core.NodeId) error {
	dir, err := os.MkdirTemp("", fmt.Sprintf("gomr-shuffle-%s-", j.id.String()))
	if err != nil {
		return fmt.Errorf("initialize job %s: %w", j.id.String(), err)
	}
	j.stagingDir = dir
	j.dirs.set(j.id, dir)
	return nil
}

func (j *LocalJob) Dispose(interrupt bool) error {
	return nil
}

func (j *LocalJob) CleanupStagingDirectory() error {
	j.dirs.remove(j.id)
	if j.stagingDir == "" {
		return nil
	}
	return os.RemoveAll(j.stagingDir)
}
