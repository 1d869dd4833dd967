package core_test

import (
	"context"
	"strings"
	"testing"

	"smarthika/internal/core"
	"smarthika/pkg/domain"
)

func validRecord() domain.Record {
	rec := domain.DefaultRecord()
	rec.Profile.CustomerName = "Ravi Kumar"
	rec.Profile.WhatsappNumber = "98765 43210"
	rec.Canvas.TotalArea = 3
	rec.Heart.WaterSources = []string{domain.SourceBorewell}
	rec.Heart.BorewellCount = 1
	rec.Arteries.PipeMaterial = domain.PipePVC
	rec.Pulse.PowerSource = "grid"
	rec.Biology.Crops = []string{"sugarcane"}
	rec.Baseline.CurrentMethod = "flood"
	rec.Vision.Goals = []string{"save water"}
	rec.Vision.Timeline = "3 months"
	return rec
}

func TestValidateModuleExamples(t *testing.T) {
	engine := core.NewDefaultRulesEngine()
	ctx := context.Background()

	errs, err := engine.ValidateModule(ctx, domain.ModuleProfile, map[string]any{"customerName": "", "whatsappNumber": "1234567890"})
	if err != nil {
		t.Fatalf("validate profile: %v", err)
	}
	if len(errs) != 1 || errs["customerName"] == "" {
		t.Fatalf("expected only customerName error, got %v", errs)
	}

	errs, _ = engine.ValidateModule(ctx, domain.ModuleCanvas, map[string]any{"totalArea": "0"})
	if _, ok := errs["totalArea"]; !ok || len(errs) != 1 {
		t.Fatalf("expected totalArea error for zero, got %v", errs)
	}
	errs, _ = engine.ValidateModule(ctx, domain.ModuleCanvas, map[string]any{"totalArea": "5"})
	if len(errs) != 0 {
		t.Fatalf("expected canvas valid, got %v", errs)
	}
	errs, _ = engine.ValidateModule(ctx, domain.ModuleCanvas, map[string]any{"totalArea": "abc"})
	if len(errs) != 1 {
		t.Fatalf("non-numeric area must fail closed, got %v", errs)
	}

	if _, err := engine.ValidateModule(ctx, "garden", nil); err == nil {
		t.Fatalf("expected unknown module error")
	}
}

func TestValidateRecordCollectsAllErrors(t *testing.T) {
	engine := core.NewDefaultRulesEngine()
	ctx := context.Background()

	report, err := engine.ValidateRecord(ctx, domain.DefaultRecord())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Valid || report.FirstInvalid != 0 {
		t.Fatalf("expected empty record invalid at step 0, got %+v", report)
	}
	if len(report.Errors) != 10 {
		t.Fatalf("expected 10 blocking errors, got %d: %v", len(report.Errors), report.Errors)
	}
	if _, ok := report.Fields[domain.ModuleVision]["timeline"]; !ok {
		t.Fatalf("expected vision timeline error in %v", report.Fields)
	}

	rec := validRecord()
	rec.Biology.Crops = nil
	report, _ = engine.ValidateRecord(ctx, rec)
	if report.Valid || report.FirstInvalid != domain.ModuleBiology.Index() {
		t.Fatalf("expected first invalid at biology, got %+v", report)
	}

	report, _ = engine.ValidateRecord(ctx, validRecord())
	if !report.Valid || report.FirstInvalid != -1 || len(report.Errors) != 0 {
		t.Fatalf("expected valid record, got %+v", report)
	}
}

func TestWarningsDoNotBlock(t *testing.T) {
	rec := validRecord()
	rec.Shed.FillPercentage = 140
	report, err := core.NewDefaultRulesEngine().ValidateRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.Valid || len(report.Warnings) != 1 {
		t.Fatalf("expected valid with one warning, got %+v", report)
	}
}

func TestValidPhone(t *testing.T) {
	cases := map[string]bool{
		"9876543210":      true,
		"98765-43210":     true,
		"+91 98765 43210": true,
		"09876543210":     true,
		"987654321":       false,
		"98765432101":     false,
		"98765abc10":      false,
		"١٢٣٤٥":           false,
		"९८७६५४३२१०":      false,
		"":                false,
	}
	for in, want := range cases {
		if got := core.ValidPhone(in); got != want {
			t.Fatalf("ValidPhone(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFieldRuleRejectsOtherVariants(t *testing.T) {
	rule := core.FieldRule("customerName", "required", func(p domain.Profile) bool { return true })
	if rule.Name() != "profile.customerName" || rule.Module() != domain.ModuleProfile {
		t.Fatalf("unexpected rule identity %s %s", rule.Name(), rule.Module())
	}
	ok, _ := rule.Check(domain.Canvas{})
	if ok {
		t.Fatalf("mismatched variant must fail")
	}
	warn := core.WarningRule("customerName", "x", func(domain.Profile) bool { return false })
	if warn.Severity() != core.SeverityWarn || !strings.HasSuffix(warn.Name(), ".warn") {
		t.Fatalf("unexpected warning rule %s %s", warn.Name(), warn.Severity())
	}
}

func TestEvaluateHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := core.NewDefaultRulesEngine().Evaluate(ctx, validRecord()); err == nil {
		t.Fatalf("expected context error")
	}
}
