// Package model defines the core data structures used throughout the application.
package model

import (
	"time"
)

// RunStatus represents the outcome of a discovery run.
type RunStatus int

const (
	RunStatusPending   RunStatus = 0 // Not started
	RunStatusRunning   RunStatus = 1 // Running
	RunStatusCompleted RunStatus = 2 // Completed without fatal diagnostics
	RunStatusFailed    RunStatus = 3 // At least one fatal diagnostic
)

// String returns the string representation of RunStatus.
func (s RunStatus) String() string {
	switch s {
	case RunStatusPending:
		return "pending"
	case RunStatusRunning:
		return "running"
	case RunStatusCompleted:
		return "completed"
	case RunStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseRunStatus parses a status name. Unknown names map to RunStatusPending.
func ParseRunStatus(s string) RunStatus {
	switch s {
	case "running":
		return RunStatusRunning
	case "completed":
		return RunStatusCompleted
	case "failed":
		return RunStatusFailed
	default:
		return RunStatusPending
	}
}

// Run describes one discovery run.
type Run struct {
	ID               int64            `json:"id" db:"id"`
	RunUUID          string           `json:"run_id" db:"run_id"`
	Status           RunStatus        `json:"status" db:"status"`
	Classpath        []string         `json:"classpath" db:"classpath"`
	AgainstClasspath []string         `json:"against_classpath" db:"against_classpath"`
	EntryPoints      []string         `json:"entry_points" db:"entry_points"`
	OutputFile       string           `json:"output_file" db:"output_file"`
	OutputFormat     string           `json:"output_format" db:"output_format"`
	Counts           Counts           `json:"counts"`
	Timings          map[string]int64 `json:"timings_ms,omitempty"`
	CreateTime       time.Time        `json:"create_time" db:"create_time"`
	BeginTime        *time.Time       `json:"begin_time" db:"begin_time"`
	EndTime          *time.Time       `json:"end_time" db:"end_time"`
}

// Counts summarizes a run.
type Counts struct {
	EntryClasses    int `json:"entry_classes"`
	AnalyzedMethods int `json:"analyzed_methods"`
	Types           int `json:"types"`
	Methods         int `json:"methods"`
	Fields          int `json:"fields"`
	MissingTypes    int `json:"missing_types"`
	MissingMethods  int `json:"missing_methods"`
	MissingFields   int `json:"missing_fields"`
	NativeMethods   int `json:"native_methods"`
	Warnings        int `json:"warnings"`
	Errors          int `json:"errors"`
}

// Required returns the number of lines a text report lists.
func (c Counts) Required() int {
	return c.MissingTypes + c.MissingMethods + c.MissingFields + c.NativeMethods
}

// Duration returns the run duration, or zero when the run has not ended.
func (r *Run) Duration() time.Duration {
	if r.BeginTime == nil || r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(*r.BeginTime)
}

// IsFinished reports whether the run reached a final status.
func (r *Run) IsFinished() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}

// NewRun creates a pending Run.
func NewRun(runUUID string, created time.Time) *Run {
	return &Run{
		RunUUID:    runUUID,
		Status:     RunStatusPending,
		CreateTime: created,
	}
}
