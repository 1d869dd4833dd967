package domain

import "strings"

// Soil textures offered by the canvas module.
const (
	SoilSandy    = "sandy"
	SoilLoamy    = "loamy"
	SoilClay     = "clay"
	SoilSilt     = "silt"
	SoilBlack    = "black"
	SoilRed      = "red"
	SoilLaterite = "laterite"
)

// Area units accepted for canvas.areaUnit.
const (
	UnitAcre    = "acre"
	UnitHectare = "hectare"
	UnitBigha   = "bigha"
	UnitGuntha  = "guntha"
	UnitSqm     = "sqm"
	UnitSqft    = "sqft"
)

// Water sources offered by the heart module.
const (
	SourceBorewell = "borewell"
	SourceOpenWell = "openWell"
	SourceFarmPond = "farmPond"
	SourceCanal    = "canal"
	SourceRiver    = "river"
)

// Pipe materials offered by the arteries module.
const (
	PipePVC    = "pvc"
	PipeHDPE   = "hdpe"
	PipeGI     = "gi"
	PipeCement = "cement"
	PipeNone   = "none"
)

// WaterSources lists the selectable water sources in display order.
var WaterSources = []string{SourceBorewell, SourceOpenWell, SourceFarmPond, SourceCanal, SourceRiver}

// SoilTextures lists the selectable soil textures in display order.
var SoilTextures = []string{SoilSandy, SoilLoamy, SoilClay, SoilSilt, SoilBlack, SoilRed, SoilLaterite}

// WaterSourceCount returns the count field associated with source and whether the source is known.
func (h Heart) WaterSourceCount(source string) (int, bool) {
	switch source {
	case SourceBorewell:
		return h.BorewellCount.Int(), true
	case SourceOpenWell:
		return h.OpenWellCount.Int(), true
	case SourceFarmPond:
		return h.FarmPondCount.Int(), true
	case SourceCanal:
		return h.CanalCount.Int(), true
	case SourceRiver:
		return h.RiverCount.Int(), true
	default:
		return 0, false
	}
}

// SetWaterSourceCount writes the count field associated with source. Unknown sources are ignored.
func (h *Heart) SetWaterSourceCount(source string, count int) bool {
	switch source {
	case SourceBorewell:
		h.BorewellCount = Count(count)
	case SourceOpenWell:
		h.OpenWellCount = Count(count)
	case SourceFarmPond:
		h.FarmPondCount = Count(count)
	case SourceCanal:
		h.CanalCount = Count(count)
	case SourceRiver:
		h.RiverCount = Count(count)
	default:
		return false
	}
	return true
}

// WaterSourceLabel returns the display label for a water source.
func WaterSourceLabel(source string) string {
	switch source {
	case SourceBorewell:
		return "Borewell"
	case SourceOpenWell:
		return "Open Well"
	case SourceFarmPond:
		return "Farm Pond"
	case SourceCanal:
		return "Canal"
	case SourceRiver:
		return "River"
	default:
		return titleCase(source)
	}
}

// AcresPerUnit returns how many acres one unit of area equals. Unknown units are treated as acres.
func AcresPerUnit(unit string) float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case UnitAcre, "acres", "":
		return 1
	case UnitHectare, "hectares", "ha":
		return 2.47105
	case UnitBigha, "bighas":
		return 0.619834
	case UnitGuntha, "gunthas":
		return 0.025
	case UnitSqm, "m2":
		return 0.000247105
	case UnitSqft, "ft2":
		return 0.0000229568
	default:
		return 1
	}
}

// HazenWilliamsC returns the roughness coefficient for a pipe material.
func HazenWilliamsC(material string) float64 {
	switch strings.ToLower(strings.TrimSpace(material)) {
	case PipePVC:
		return 150
	case PipeHDPE:
		return 140
	case PipeCement:
		return 130
	case PipeGI:
		return 120
	default:
		return 100
	}
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
