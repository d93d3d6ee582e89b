package check

import (
	"time"

	"github.com/google/uuid"

	"github.com/tordrt/modelcheck/internal/validate"
)

// Status is the outcome of one check.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusError Status = "error"
)

// DependencyCheck asks whether Determinant functionally determines
// Dependent within Table.
type DependencyCheck struct {
	Table       string
	Determinant string
	Dependent   string
	Options     validate.DependencyOptions
}

type DependencyResult struct {
	Check      DependencyCheck
	Status     Status
	Rows       int
	Violations []validate.DependencyViolation
	Err        error
}

type RelationshipResult struct {
	Relationship validate.Relationship
	// Discovered is set for relationships taken from source metadata.
	Discovered bool
	Status     Status
	Summary    validate.RelationshipSummary
	Violations []validate.RelationshipViolation
	Err        error
}

// Report is the outcome of one run.
type Report struct {
	RunID         uuid.UUID
	Source        string
	StartedAt     time.Time
	Duration      time.Duration
	Dependencies  []DependencyResult
	Relationships []RelationshipResult
}

// Totals counts checks by status.
type Totals struct {
	Checks     int
	Passed     int
	Failed     int
	Errored    int
	Violations int
}

func (r *Report) Totals() Totals {
	var t Totals
	add := func(s Status, violations int) {
		t.Checks++
		t.Violations += violations
		switch s {
		case StatusPass:
			t.Passed++
		case StatusFail:
			t.Failed++
		case StatusError:
			t.Errored++
		}
	}
	for _, d := range r.Dependencies {
		add(d.Status, len(d.Violations))
	}
	for _, rel := range r.Relationships {
		add(rel.Status, len(rel.Violations))
	}
	return t
}

// ExitCode is 2 if any check errored, 1 if any check found violations and
// 0 otherwise.
func (r *Report) ExitCode() int {
	t := r.Totals()
	switch {
	case t.Errored > 0:
		return 2
	case t.Failed > 0:
		return 1
	default:
		return 0
	}
}

func statusOf(violations int) Status {
	if violations > 0 {
		return StatusFail
	}
	return StatusPass
}
