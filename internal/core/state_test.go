package core_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"smarthika/internal/core"
	"smarthika/pkg/domain"
)

func mustReduce(t *testing.T, st core.State, action core.Action) core.State {
	t.Helper()
	next, err := core.Reduce(st, action)
	if err != nil {
		t.Fatalf("reduce %s: %v", core.ActionName(action), err)
	}
	return next
}

func TestReduceNavigationClamps(t *testing.T) {
	st := core.NewState()
	st = mustReduce(t, st, core.PrevModule{})
	if st.CurrentStep != 0 {
		t.Fatalf("prev at first step should stay at 0, got %d", st.CurrentStep)
	}
	st = mustReduce(t, st, core.GoToModule{Index: 42})
	if st.CurrentStep != domain.ModuleCount-1 {
		t.Fatalf("expected clamp to last step, got %d", st.CurrentStep)
	}
	st = mustReduce(t, st, core.NextModule{})
	if st.CurrentStep != domain.ModuleCount-1 {
		t.Fatalf("next at last step should stay, got %d", st.CurrentStep)
	}
	st = mustReduce(t, st, core.GoToModule{Index: -3})
	if st.CurrentStep != 0 {
		t.Fatalf("expected clamp to 0, got %d", st.CurrentStep)
	}
	st = mustReduce(t, st, core.NextModule{})
	if st.CurrentStep != 1 {
		t.Fatalf("expected step 1, got %d", st.CurrentStep)
	}
}

func TestReduceCompleteModuleKeepsSortedSet(t *testing.T) {
	st := core.NewState()
	for _, i := range []int{4, 1, 4, 0, 1} {
		st = mustReduce(t, st, core.CompleteModule{Index: i})
	}
	if diff := cmp.Diff([]int{0, 1, 4}, st.Completed); diff != "" {
		t.Fatalf("completed mismatch (-want +got):\n%s", diff)
	}
}

func TestReduceUpdateModuleIsPure(t *testing.T) {
	st := core.NewState()
	next := mustReduce(t, st, core.UpdateModule{
		Module: domain.ModuleProfile,
		Patch:  map[string]any{"customerName": "Lakshmi", "state": "Karnataka"},
	})
	if st.Record.Profile.CustomerName != "" {
		t.Fatalf("input state was mutated")
	}
	want := domain.DefaultRecord()
	want.Profile.CustomerName = "Lakshmi"
	want.Profile.State = "Karnataka"
	if diff := cmp.Diff(want, next.Record); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	// a later patch keeps untouched keys
	next = mustReduce(t, next, core.UpdateModule{Module: domain.ModuleProfile, Patch: map[string]any{"district": "Mysuru"}})
	if next.Record.Profile.CustomerName != "Lakshmi" || next.Record.Profile.District != "Mysuru" {
		t.Fatalf("shallow merge lost fields: %+v", next.Record.Profile)
	}
}

func TestReduceUpdateModuleErrorLeavesState(t *testing.T) {
	st := core.NewState()
	st.Record.Profile.CustomerName = "Asha"
	got, err := core.Reduce(st, core.UpdateModule{Module: "nope", Patch: map[string]any{"x": 1}})
	if err == nil {
		t.Fatalf("expected unknown module error")
	}
	if diff := cmp.Diff(st, got); diff != "" {
		t.Fatalf("state changed on error (-want +got):\n%s", diff)
	}
	if _, err := core.Reduce(st, core.UpdateModule{Module: domain.ModuleCanvas, Patch: map[string]any{"soilTextures": "sandy"}}); err == nil {
		t.Fatalf("expected type error for string into slice")
	}
}

func TestReduceTogglesAndReset(t *testing.T) {
	st := core.NewState()
	st = mustReduce(t, st, core.ToggleWaterSource{Source: domain.SourceBorewell})
	st = mustReduce(t, st, core.ToggleSoilTexture{Texture: domain.SoilRed})
	st = mustReduce(t, st, core.GoToModule{Index: 5})
	st = mustReduce(t, st, core.CompleteModule{Index: 2})
	if st.Record.Heart.BorewellCount != 1 || len(st.Record.Canvas.SoilTextures) != 2 {
		t.Fatalf("toggles not applied: %+v %+v", st.Record.Heart, st.Record.Canvas)
	}
	st = mustReduce(t, st, core.Reset{})
	if diff := cmp.Diff(core.NewState(), st); diff != "" {
		t.Fatalf("reset mismatch (-want +got):\n%s", diff)
	}
}

func TestActionNames(t *testing.T) {
	cases := map[string]core.Action{
		"update_module":       core.UpdateModule{},
		"go_to_module":        core.GoToModule{},
		"next_module":         core.NextModule{},
		"prev_module":         core.PrevModule{},
		"complete_module":     core.CompleteModule{},
		"toggle_soil_texture": core.ToggleSoilTexture{},
		"toggle_water_source": core.ToggleWaterSource{},
		"reset":               core.Reset{},
	}
	for want, action := range cases {
		if got := core.ActionName(action); got != want {
			t.Fatalf("ActionName(%T) = %q, want %q", action, got, want)
		}
	}
	if core.ActionName(nil) != "" {
		t.Fatalf("expected empty name for nil action")
	}
}

func TestStateSessionRoundTrip(t *testing.T) {
	sess := domain.Session{ID: "s", Record: domain.DefaultRecord(), CurrentStep: 3, Completed: []int{0, 1, 2}}
	st := core.StateOf(sess)
	st.CurrentStep = 4
	var out domain.Session
	st.Apply(&out)
	if out.CurrentStep != 4 || len(out.Completed) != 3 {
		t.Fatalf("unexpected apply result %+v", out)
	}
}
