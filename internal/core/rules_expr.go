package core

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"smarthika/pkg/domain"
)

// RulePack is the YAML document operators use to add rules without a rebuild.
//
//	rules:
//	  - name: canvas.large-farm
//	    module: canvas
//	    field: totalArea
//	    severity: warn
//	    message: Farms above 500 acres need a site visit
//	    expr: totalArea <= 500
type RulePack struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec declares one expression rule.
type RuleSpec struct {
	Name     string `yaml:"name"`
	Module   string `yaml:"module"`
	Field    string `yaml:"field"`
	Severity string `yaml:"severity"`
	Message  string `yaml:"message"`
	Expr     string `yaml:"expr"`
}

// ExprRule evaluates a boolean expr-lang expression against the module's field map.
type ExprRule struct {
	spec     RuleSpec
	module   ModuleID
	severity Severity
	program  *vm.Program
}

// NewExprRule compiles spec. Expressions must produce a boolean.
func NewExprRule(spec RuleSpec) (*ExprRule, error) {
	module, err := domain.ParseModuleID(spec.Module)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
	}
	if strings.TrimSpace(spec.Expr) == "" {
		return nil, fmt.Errorf("rule %q: expression must not be empty", spec.Name)
	}
	severity := SeverityBlock
	switch strings.ToLower(strings.TrimSpace(spec.Severity)) {
	case "", string(SeverityBlock):
	case string(SeverityWarn):
		severity = SeverityWarn
	default:
		return nil, fmt.Errorf("rule %q: unknown severity %q", spec.Name, spec.Severity)
	}
	program, err := expr.Compile(spec.Expr, expr.Env(map[string]any{}), expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("rule %q: compile: %w", spec.Name, err)
	}
	if spec.Name == "" {
		spec.Name = fmt.Sprintf("%s.%s.expr", module, spec.Field)
	}
	if spec.Message == "" {
		spec.Message = fmt.Sprintf("%s is invalid", spec.Field)
	}
	return &ExprRule{spec: spec, module: module, severity: severity, program: program}, nil
}

func (r *ExprRule) Name() string       { return r.spec.Name }
func (r *ExprRule) Module() ModuleID   { return r.module }
func (r *ExprRule) Field() string      { return r.spec.Field }
func (r *ExprRule) Severity() Severity { return r.severity }
func (r *ExprRule) Message() string    { return r.spec.Message }

// Check runs the compiled expression. Evaluation errors fail the rule rather than the request.
func (r *ExprRule) Check(data ModuleData) (bool, error) {
	if data == nil || data.ModuleID() != r.module {
		return false, nil
	}
	env, err := domain.FieldMap(data)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(r.program, env)
	if err != nil {
		return false, nil
	}
	ok, _ := out.(bool)
	return ok, nil
}

// LoadRulePack parses a YAML rule pack and compiles every rule.
func LoadRulePack(r io.Reader) ([]Rule, error) {
	var pack RulePack
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pack); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}
	rules := make([]Rule, 0, len(pack.Rules))
	for _, spec := range pack.Rules {
		rule, err := NewExprRule(spec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadRuleFile reads a rule pack from disk.
func LoadRuleFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule pack: %w", err)
	}
	return LoadRulePack(bytes.NewReader(data))
}
