package rest

import (
	"fmt"
	"time"

	"github.com/nemanja-m/gomr/internal/tracker"
	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// toJobInfo converts the wire request into the domain JobInfo the tracker
// accepts.
func toJobInfo(req SubmitJobRequest) core.JobInfo {
	return core.JobInfo{
		Name: req.Name,
		Input: core.InputConfig{
			Type:   req.Input.Type,
			Format: req.Input.Format,
			Paths:  req.Input.Paths,
		},
		Output: core.OutputConfig{
			Type: req.Output.Type,
			Path: req.Output.Path,
		},
		Config: core.JobRunConfig{
			NumReducers: req.Config.NumReducers,
		},
		Metadata: req.Metadata,
	}
}

func validateSubmitJobRequest(req *SubmitJobRequest) error {
	if req.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if req.Input.Type == "" {
		return fmt.Errorf("input type is required")
	}
	if len(req.Input.Paths) == 0 {
		return fmt.Errorf("at least one input path is required")
	}
	if req.Config.NumReducers <= 0 {
		return fmt.Errorf("numReducers must be greater than 0")
	}
	return nil
}

func toSubmitJobResponse(jobID string) SubmitJobResponse {
	return SubmitJobResponse{
		JobID:       jobID,
		Status:      string(core.PhaseSetup),
		SubmittedAt: time.Now().UTC(),
		Links:       Links{Self: "/api/jobs/" + jobID},
	}
}

func toGetJobResponse(jobID string, phase core.Phase, failCause error, pendingSplits, pendingReducers int) GetJobResponse {
	resp := GetJobResponse{
		JobID:  jobID,
		Status: string(phase),
		Progress: ProgressInfo{
			PendingMapSplits: pendingSplits,
			PendingReducers:  pendingReducers,
		},
	}
	if failCause != nil {
		resp.FailedAt = failCause.Error()
	}
	return resp
}

func toGetCountersResponse(jobID string, counters core.Counters) GetCountersResponse {
	out := make(map[string]int64, len(counters))
	for k, v := range counters {
		out[k] = v
	}
	return GetCountersResponse{JobID: jobID, Counters: out}
}

func toListJobsResponse(summaries []tracker.JobSummary, offset, limit int) ListJobsResponse {
	items := make([]JobListItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, JobListItem{JobID: s.JobId.String(), Name: s.Name, Status: string(s.Phase)})
	}
	return ListJobsResponse{Jobs: items, Offset: offset, Limit: limit}
}

func toKillJobResponse(jobID string, cancelled bool, failCause error) KillJobResponse {
	resp := KillJobResponse{JobID: jobID, Cancelled: cancelled}
	if failCause != nil {
		resp.FailCause = failCause.Error()
	}
	return resp
}
