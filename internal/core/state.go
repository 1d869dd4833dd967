package core

import (
	"fmt"
	"sort"

	"smarthika/pkg/domain"
)

// State is the form state container: the record plus navigation.
type State struct {
	Record      Record `json:"record"`
	CurrentStep int    `json:"currentStep"`
	Completed   []int  `json:"completed"`
}

// NewState returns the state a fresh survey starts in.
func NewState() State {
	return State{Record: domain.DefaultRecord(), Completed: []int{}}
}

// StateOf extracts the reducer state from a session.
func StateOf(s Session) State {
	return State{Record: s.Record, CurrentStep: s.CurrentStep, Completed: s.Completed}
}

// Apply writes reducer state back onto a session.
func (st State) Apply(s *Session) {
	s.Record = st.Record
	s.CurrentStep = st.CurrentStep
	s.Completed = st.Completed
}

func (st State) clone() State {
	return State{
		Record:      st.Record.Clone(),
		CurrentStep: st.CurrentStep,
		Completed:   append([]int{}, st.Completed...),
	}
}

// Action is a tagged state transition. Each variant is handled by Reduce.
type Action interface {
	actionName() string
}

// UpdateModule shallow-merges Patch into one module (updateModuleData).
type UpdateModule struct {
	Module ModuleID
	Patch  map[string]any
}

// GoToModule jumps to a step index, clamped to the valid range.
type GoToModule struct{ Index int }

// NextModule advances one step, stopping at the last module.
type NextModule struct{}

// PrevModule goes back one step, stopping at the first module.
type PrevModule struct{}

// CompleteModule marks a step index as completed.
type CompleteModule struct{ Index int }

// ToggleSoilTexture flips a soil texture in the canvas selection.
type ToggleSoilTexture struct{ Texture string }

// ToggleWaterSource flips a water source in the heart selection.
type ToggleWaterSource struct{ Source string }

// Reset discards all answers.
type Reset struct{}

func (UpdateModule) actionName() string      { return "update_module" }
func (GoToModule) actionName() string        { return "go_to_module" }
func (NextModule) actionName() string        { return "next_module" }
func (PrevModule) actionName() string        { return "prev_module" }
func (CompleteModule) actionName() string    { return "complete_module" }
func (ToggleSoilTexture) actionName() string { return "toggle_soil_texture" }
func (ToggleWaterSource) actionName() string { return "toggle_water_source" }
func (Reset) actionName() string             { return "reset" }

// ActionName returns the wire name of an action.
func ActionName(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}

// Reduce applies action to st and returns the new state. st itself is never
// modified. Navigation never fails; only malformed module patches return an error,
// in which case the original state is returned unchanged.
func Reduce(st State, action Action) (State, error) {
	next := st.clone()
	switch a := action.(type) {
	case UpdateModule:
		if err := next.Record.Merge(a.Module, a.Patch); err != nil {
			return st, err
		}
	case GoToModule:
		next.CurrentStep = domain.ClampStep(a.Index)
	case NextModule:
		next.CurrentStep = domain.ClampStep(next.CurrentStep + 1)
	case PrevModule:
		next.CurrentStep = domain.ClampStep(next.CurrentStep - 1)
	case CompleteModule:
		next.Completed = addStep(next.Completed, domain.ClampStep(a.Index))
	case ToggleSoilTexture:
		next.Record.Canvas = ToggleSoil(next.Record.Canvas, a.Texture)
	case ToggleWaterSource:
		next.Record.Heart = ToggleSource(next.Record.Heart, a.Source)
	case Reset:
		next = NewState()
	default:
		return st, fmt.Errorf("unsupported action %T", action)
	}
	return next, nil
}

func addStep(steps []int, i int) []int {
	idx := sort.SearchInts(steps, i)
	if idx < len(steps) && steps[idx] == i {
		return steps
	}
	steps = append(steps, 0)
	copy(steps[idx+1:], steps[idx:])
	steps[idx] = i
	return steps
}
