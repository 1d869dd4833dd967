package core

import (
	"fmt"
	"strings"

	"smarthika/pkg/domain"
)

type predicateRule struct {
	name     string
	module   ModuleID
	field    string
	severity Severity
	message  string
	check    func(ModuleData) bool
}

func (r predicateRule) Name() string       { return r.name }
func (r predicateRule) Module() ModuleID   { return r.module }
func (r predicateRule) Field() string      { return r.field }
func (r predicateRule) Severity() Severity { return r.severity }
func (r predicateRule) Message() string    { return r.message }

func (r predicateRule) Check(data ModuleData) (bool, error) {
	return r.check(data), nil
}

// FieldRule builds a blocking rule over one module variant. Data of any other
// variant fails the rule.
func FieldRule[T ModuleData](field, message string, ok func(T) bool) Rule {
	var zero T
	module := zero.ModuleID()
	return predicateRule{
		name:     fmt.Sprintf("%s.%s", module, field),
		module:   module,
		field:    field,
		severity: SeverityBlock,
		message:  message,
		check: func(data ModuleData) bool {
			v, matches := data.(T)
			return matches && ok(v)
		},
	}
}

// WarningRule is FieldRule with warning severity.
func WarningRule[T ModuleData](field, message string, ok func(T) bool) Rule {
	r := FieldRule(field, message, ok).(predicateRule)
	r.severity = SeverityWarn
	r.name += ".warn"
	return r
}

// DefaultRules returns the built-in survey rule table.
func DefaultRules() []Rule {
	return []Rule{
		FieldRule("customerName", "Customer name is required", func(p domain.Profile) bool {
			return present(p.CustomerName)
		}),
		FieldRule("whatsappNumber", "Please enter a valid 10-digit WhatsApp number", func(p domain.Profile) bool {
			return ValidPhone(p.WhatsappNumber)
		}),
		FieldRule("totalArea", "Total area must be a positive number", func(c domain.Canvas) bool {
			return c.TotalArea.Positive()
		}),
		FieldRule("waterSources", "Select at least one water source", func(h domain.Heart) bool {
			return len(h.WaterSources) > 0
		}),
		FieldRule("pipeMaterial", "Pipe material is required", func(a domain.Arteries) bool {
			return present(a.PipeMaterial)
		}),
		FieldRule("powerSource", "Power source is required", func(p domain.Pulse) bool {
			return present(p.PowerSource)
		}),
		FieldRule("crops", "Select at least one crop", func(b domain.Biology) bool {
			return len(b.Crops) > 0
		}),
		FieldRule("currentMethod", "Current irrigation method is required", func(b domain.Baseline) bool {
			return present(b.CurrentMethod)
		}),
		WarningRule("fillPercentage", "Storage fill level should be between 0 and 100", func(s domain.Shed) bool {
			return s.FillPercentage >= 0 && s.FillPercentage <= 100
		}),
		FieldRule("goals", "Select at least one goal", func(v domain.Vision) bool {
			return len(v.Goals) > 0
		}),
		FieldRule("timeline", "Timeline is required", func(v domain.Vision) bool {
			return present(v.Timeline)
		}),
	}
}

func present(s string) bool { return strings.TrimSpace(s) != "" }

// ValidPhone accepts a 10-digit Indian mobile number, optionally written with
// separators or a +91/0 prefix. Only ASCII digits count, so the length checks
// below are rune counts.
func ValidPhone(raw string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		if r == ' ' || r == '-' || r == '(' || r == ')' || r == '+' || r == '.' {
			return -1
		}
		return 'x'
	}, strings.TrimSpace(raw))
	if strings.ContainsRune(digits, 'x') {
		return false
	}
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}
	return len(digits) == 10
}
