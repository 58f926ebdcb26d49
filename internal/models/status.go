package models

import (
	"fmt"
	"strings"
)

// Status is a stage of the task workflow.
type Status string

const (
	StatusNotStarted   Status = "Not Started"
	StatusStarted      Status = "Started"
	StatusCodeChanged  Status = "Code Changed"
	StatusLocalTested  Status = "Local Tested"
	StatusBetaTesting  Status = "Beta Testing"
	StatusPRRaised     Status = "PR Raised"
	StatusProdDeployed Status = "Prod Deployed"
)

var statusOrder = []Status{
	StatusNotStarted,
	StatusStarted,
	StatusCodeChanged,
	StatusLocalTested,
	StatusBetaTesting,
	StatusPRRaised,
	StatusProdDeployed,
}

// Statuses returns the workflow stages in board column order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// ParseStatus matches a status name, ignoring case and surrounding space.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	for _, s := range statusOrder {
		if strings.EqualFold(string(s), raw) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

// Valid reports whether s is one of the workflow stages.
func (s Status) Valid() bool {
	return s.Index() >= 0
}

// Index is the position of s in the workflow, or -1.
func (s Status) Index() int {
	for i, v := range statusOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// IsStarted reports whether work has begun, i.e. anything past Not Started.
func (s Status) IsStarted() bool {
	return s.Index() > 0
}

// IsInProgress covers the development stages.
func (s Status) IsInProgress() bool {
	return s == StatusStarted || s == StatusCodeChanged
}

// IsTesting covers the verification stages.
func (s Status) IsTesting() bool {
	return s == StatusLocalTested || s == StatusBetaTesting
}

// IsDone reports the terminal stage.
func (s Status) IsDone() bool {
	return s == StatusProdDeployed
}

// Priority of a task.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists the accepted priorities, highest first.
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

// ParsePriority matches a priority name, ignoring case.
func ParsePriority(raw string) (Priority, error) {
	raw = strings.TrimSpace(raw)
	for _, p := range Priorities() {
		if strings.EqualFold(string(p), raw) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrValidation, raw)
}

// Valid reports whether p is an accepted priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}
