package domain

import (
	"sort"
	"time"
)

// SessionStatus tracks whether a survey has been sent to the spreadsheet web-hook.
type SessionStatus string

const (
	// SessionDraft is an in-progress survey.
	SessionDraft SessionStatus = "draft"
	// SessionSubmitted is a survey whose last submission succeeded.
	SessionSubmitted SessionStatus = "submitted"
)

// Session is one respondent's survey: the record plus navigation state.
type Session struct {
	ID          string        `json:"id"`
	Record      Record        `json:"record"`
	CurrentStep int           `json:"currentStep"`
	Completed   []int         `json:"completed"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	SubmittedAt *time.Time    `json:"submittedAt,omitempty"`
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	cp := s
	cp.Record = s.Record.Clone()
	cp.Completed = append([]int{}, s.Completed...)
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		cp.SubmittedAt = &t
	}
	return cp
}

// IsCompleted reports whether step index i has been marked complete.
func (s Session) IsCompleted(i int) bool {
	idx := sort.SearchInts(s.Completed, i)
	return idx < len(s.Completed) && s.Completed[idx] == i
}

// SubmissionAttempt records one call to the submission web-hook.
type SubmissionAttempt struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ArchiveID   string    `json:"archiveId,omitempty"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// Outcome is the result of handing a record to the submission web-hook. Success
// only means the request left without a transport error; the web-hook's response
// is not inspected, so it does not prove the spreadsheet row was written.
type Outcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
