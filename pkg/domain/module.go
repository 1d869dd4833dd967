// Package domain defines the survey submission record, its per-module variants,
// session state and the rule evaluation primitives shared by smarthika services.
package domain

import (
	"fmt"
	"strings"
)

// ModuleID identifies one step of the multi-step survey.
type ModuleID string

// Survey modules in step order. The position in Modules is the step index.
const (
	// ModuleProfile captures farmer contact and location details.
	ModuleProfile ModuleID = "profile"
	// ModuleCanvas captures land area, shape and soil.
	ModuleCanvas ModuleID = "canvas"
	// ModuleHeart captures water sources.
	ModuleHeart ModuleID = "heart"
	// ModuleArteries captures the pipe network.
	ModuleArteries ModuleID = "arteries"
	// ModulePulse captures the power supply.
	ModulePulse ModuleID = "pulse"
	// ModuleShelter captures the pump house and installation site.
	ModuleShelter ModuleID = "shelter"
	// ModuleBiology captures crops.
	ModuleBiology ModuleID = "biology"
	// ModuleBaseline captures the current irrigation practice and its costs.
	ModuleBaseline ModuleID = "baseline"
	// ModuleShed captures water storage.
	ModuleShed ModuleID = "shed"
	// ModuleVision captures goals, budget and timeline.
	ModuleVision ModuleID = "vision"
)

// Modules lists every module in step order.
var Modules = []ModuleID{
	ModuleProfile,
	ModuleCanvas,
	ModuleHeart,
	ModuleArteries,
	ModulePulse,
	ModuleShelter,
	ModuleBiology,
	ModuleBaseline,
	ModuleShed,
	ModuleVision,
}

// ModuleCount is the number of survey steps.
const ModuleCount = 10

// ParseModuleID resolves a module identifier, ignoring case and surrounding whitespace.
func ParseModuleID(raw string) (ModuleID, error) {
	id := ModuleID(strings.ToLower(strings.TrimSpace(raw)))
	if id.Index() < 0 {
		return "", fmt.Errorf("unknown module %q", raw)
	}
	return id, nil
}

// Index returns the step index of the module or -1 when unknown.
func (m ModuleID) Index() int {
	for i, id := range Modules {
		if id == m {
			return i
		}
	}
	return -1
}

// Valid reports whether m names a known module.
func (m ModuleID) Valid() bool { return m.Index() >= 0 }

// ModuleAt returns the module at step index i. The index is clamped to the valid range.
func ModuleAt(i int) ModuleID {
	return Modules[ClampStep(i)]
}

// ClampStep bounds a step index to [0, ModuleCount-1].
func ClampStep(i int) int {
	if i < 0 {
		return 0
	}
	if i > ModuleCount-1 {
		return ModuleCount - 1
	}
	return i
}
