package core

import (
	"context"

	"smarthika/pkg/domain"
)

// Rule is one declarative check on a single module field.
type Rule interface {
	Name() string
	Module() ModuleID
	Field() string
	Severity() Severity
	Message() string
	// Check reports whether data satisfies the rule.
	Check(data ModuleData) (bool, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// NewDefaultRulesEngine builds a rules engine with the built-in survey rule table.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	for _, rule := range DefaultRules() {
		engine.Register(rule)
	}
	return engine
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in registration order.
func (e *RulesEngine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// EvaluateModule runs every rule registered for data's module.
func (e *RulesEngine) EvaluateModule(ctx context.Context, data ModuleData) (Result, error) {
	var res Result
	for _, rule := range e.rules {
		if rule.Module() != data.ModuleID() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		ok, err := rule.Check(data)
		if err != nil {
			return Result{}, err
		}
		if ok {
			continue
		}
		res.Violations = append(res.Violations, Violation{
			Rule:     rule.Name(),
			Severity: rule.Severity(),
			Module:   rule.Module(),
			Field:    rule.Field(),
			Message:  rule.Message(),
		})
	}
	return res, nil
}

// Evaluate executes all registered rules against every module of rec, in step order.
func (e *RulesEngine) Evaluate(ctx context.Context, rec Record) (Result, error) {
	var combined Result
	for _, id := range domain.Modules {
		res, err := e.EvaluateModule(ctx, rec.Module(id))
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}

// ValidateModule decodes fields into the module's zero value and returns the first
// blocking message per field. An empty map means the module is valid.
func (e *RulesEngine) ValidateModule(ctx context.Context, id ModuleID, fields map[string]any) (map[string]string, error) {
	data, err := domain.DecodeFields(id, fields)
	if err != nil {
		return nil, err
	}
	res, err := e.EvaluateModule(ctx, data)
	if err != nil {
		return nil, err
	}
	return fieldErrors(res.Violations), nil
}

// Report is the cross-module validation outcome used before submission.
type Report struct {
	Valid        bool                           `json:"valid"`
	Errors       []string                       `json:"errors"`
	Warnings     []string                       `json:"warnings,omitempty"`
	Fields       map[ModuleID]map[string]string `json:"fields"`
	FirstInvalid int                            `json:"firstInvalid"`
}

// ValidateRecord collects every module's errors. FirstInvalid is the lowest
// step index with a blocking violation, or -1 when the record is valid.
func (e *RulesEngine) ValidateRecord(ctx context.Context, rec Record) (Report, error) {
	res, err := e.Evaluate(ctx, rec)
	if err != nil {
		return Report{}, err
	}
	return NewReport(res), nil
}

// NewReport summarizes a rules result.
func NewReport(res Result) Report {
	report := Report{
		Errors:       []string{},
		Fields:       make(map[ModuleID]map[string]string),
		FirstInvalid: -1,
	}
	for _, v := range res.Violations {
		if v.Severity != SeverityBlock {
			report.Warnings = append(report.Warnings, v.Message)
			continue
		}
		report.Errors = append(report.Errors, v.Message)
		fields, ok := report.Fields[v.Module]
		if !ok {
			fields = make(map[string]string)
			report.Fields[v.Module] = fields
		}
		if _, seen := fields[v.Field]; !seen {
			fields[v.Field] = v.Message
		}
		if idx := v.Module.Index(); idx >= 0 && (report.FirstInvalid < 0 || idx < report.FirstInvalid) {
			report.FirstInvalid = idx
		}
	}
	report.Valid = report.FirstInvalid < 0
	return report
}

func fieldErrors(violations []Violation) map[string]string {
	out := make(map[string]string)
	for _, v := range violations {
		if v.Severity != SeverityBlock {
			continue
		}
		if _, seen := out[v.Field]; !seen {
			out[v.Field] = v.Message
		}
	}
	return out
}
