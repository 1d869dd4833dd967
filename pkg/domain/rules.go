package domain

import (
	"fmt"
	"strings"
)

// Severity captures rule outcomes.
type Severity string

const (
	// SeverityBlock prevents submission.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but does not prevent submission.
	SeverityWarn Severity = "warn"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Module   ModuleID `json:"module"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// ForModule returns the violations raised against one module.
func (r Result) ForModule(id ModuleID) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Module == id {
			out = append(out, v)
		}
	}
	return out
}

// ValidationError is returned when blocking violations are present.
type ValidationError struct {
	Result Result
}

func (e ValidationError) Error() string {
	var msgs []string
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, v.Message)
		}
	}
	if len(msgs) == 0 {
		return "submission blocked by rules"
	}
	return fmt.Sprintf("submission blocked by rules: %s", strings.Join(msgs, "; "))
}
