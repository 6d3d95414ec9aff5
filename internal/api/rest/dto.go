// Package rest exposes the JobTracker facade (spec §4.1) as a JSON/HTTP
// API: dto.go holds wire shapes, mapper.go converts between them and the
// domain types, server.go wires routes to a JobTracker, middleware.go
// chains recovery and logging around the handler.
package rest

import "time"

type SubmitJobRequest struct {
	Name     string            `json:"name"`
	Input    InputConfig       `json:"input"`
	Output   OutputConfig      `json:"output"`
	Config   JobConfig         `json:"config"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type InputConfig struct {
	Type   string   `json:"type"`
	Paths  []string `json:"paths"`
	Format string   `json:"format"`
}

type OutputConfig struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

type JobConfig struct {
	NumReducers int `json:"numReducers"`
}

type SubmitJobResponse struct {
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	Links       Links     `json:"links"`
}

type Links struct {
	Self string `json:"self"`
}

type GetJobResponse struct {
	JobID    string            `json:"job_id"`
	Status   string            `json:"status"`
	Progress ProgressInfo      `json:"progress"`
	FailedAt string            `json:"fail_cause,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ProgressInfo struct {
	PendingMapSplits int `json:"pending_map_splits"`
	PendingReducers  int `json:"pending_reducers"`
}

type GetCountersResponse struct {
	JobID    string           `json:"job_id"`
	Counters map[string]int64 `json:"counters"`
}

type JobListItem struct {
	JobID  string `json:"job_id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type ListJobsResponse struct {
	Jobs   []JobListItem `json:"jobs"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

type KillJobResponse struct {
	JobID     string `json:"job_id"`
	Cancelled bool   `json:"cancelled"`
	FailCause string `json:"fail_cause,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
