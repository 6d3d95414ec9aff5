package demo

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

func TestLocalJob_InitializeCreatesAndPublishesStagingDir(t *testing.T) {
	dirs := NewJobDirectory()
	jobId := core.NewJobId()
	job := NewLocalJob(jobId, dirs)

	require.NoError(t, job.Initialize(core.NewNodeId()))
	defer job.CleanupStagingDirectory()

	dir, ok := dirs.get(jobId)
	require.True(t, ok, "expected staging dir to be published to JobDirectory")

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestLocalJob_CleanupRemovesDirAndUnpublishes(t *testing.T) {
	dirs := NewJobDirectory()
	jobId := core.NewJobId()
	job := NewLocalJob(jobId, dirs)
	require.NoError(t, job.Initialize(core.NewNodeId()))
	dir, _ := dirs.get(jobId)

	require.NoError(t, job.CleanupStagingDirectory())

	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err), "expected staging dir to be removed from disk")

	_, ok := dirs.get(jobId)
	require.False(t, ok, "expected staging dir to be unpublished from JobDirectory")
}

func TestLocalJob_CleanupWithoutInitializeIsNoop(t *testing.T) {
	dirs := NewJobDirectory()
	job := NewLocalJob(core.NewJobId(), dirs)
	require.NoError(t, job.CleanupStagingDirectory())
}
