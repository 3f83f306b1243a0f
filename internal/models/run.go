package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun summarises one pipeline execution for a source.
type ScrapeRun struct {
	ID         uuid.UUID  `json:"id"`
	Source     string     `json:"source"`
	Status     RunStatus  `json:"status"`
	Links      int        `json:"links"`
	Fetched    int        `json:"fetched"`
	Listings   int        `json:"listings"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func NewScrapeRun(source string) *ScrapeRun {
	return &ScrapeRun{
		ID:        uuid.New(),
		Source:    source,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

func (r *ScrapeRun) Finish(err error) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	if err != nil {
		r.Status = RunStatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = RunStatusSucceeded
}
