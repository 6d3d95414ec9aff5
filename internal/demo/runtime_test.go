package demo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

func TestSingleNodeRuntime_ReportsConfiguredValues(t *testing.T) {
	node := core.NewNodeId()
	r := NewSingleNodeRuntime(node, false, 3600)

	require.Equal(t, node, r.LocalNodeId())
	require.False(t, r.JobUpdateLeader())
	require.Equal(t, int64(3600), r.FinishedJobInfoTTL())
	require.True(t, r.IsParticipating(&core.JobMetadata{}))
}
