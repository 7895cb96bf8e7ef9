package entity

import (
	"time"

	"github.com/google/uuid"
)

// Component represents a component document (wafer, bar, chip, module, ...)
// for data transfer between layers. Documents are loaded read-only; the
// identifier is immutable and the test history is append-only upstream.
type Component struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	ComponentType     string         `json:"component_type"`
	ParentComponentID *uuid.UUID     `json:"parent_component_id,omitempty"`
	BlueprintID       uuid.UUID      `json:"blueprint_id"`
	Status            string         `json:"status"`
	ProcessStage      string         `json:"process_stage"`
	Batch             string         `json:"batch,omitempty"`
	WaferLabel        string         `json:"wafer_label,omitempty"`
	StatusLog         []StatusChange `json:"status_log,omitempty"`
	InnerComponentIDs []uuid.UUID    `json:"inner_component_ids,omitempty"`
	TestHistory       []TestEntry    `json:"test_history,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// StatusChange is one row of a component's status log.
type StatusChange struct {
	Status       string    `json:"status"`
	DateOfChange time.Time `json:"date_of_change"`
}

// TestEntry is one bench session appended to a component's test history.
type TestEntry struct {
	ExecutionDate time.Time `json:"execution_date"`
	ProcessStage  string    `json:"process_stage"`
	Status        string    `json:"status"`
	TestReportID  string    `json:"test_report_id,omitempty"`
	Bench         string    `json:"bench,omitempty"`
	Operator      string    `json:"operator,omitempty"`
	Results       []Result  `json:"results"`
}

// StatusOn returns the status the component had on the given date, walking
// the status log. Falls back to the current status when the log is empty or
// starts after the date.
func (c *Component) StatusOn(at time.Time) string {
	status := c.Status
	for i := len(c.StatusLog) - 1; i >= 0; i-- {
		if !c.StatusLog[i].DateOfChange.After(at) {
			return c.StatusLog[i].Status
		}
	}
	return status
}

// HasTestHistory reports whether at least one test entry exists.
func (c *Component) HasTestHistory() bool {
	return len(c.TestHistory) > 0
}
