package core

import "smarthika/pkg/domain"

type (
	ModuleID          = domain.ModuleID
	ModuleData        = domain.ModuleData
	Record            = domain.Record
	Session           = domain.Session
	SubmissionAttempt = domain.SubmissionAttempt
	Severity          = domain.Severity
	Violation         = domain.Violation
	Result            = domain.Result
	ValidationError   = domain.ValidationError
	PersistentStore   = domain.PersistentStore
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
)
