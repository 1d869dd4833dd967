// Package visual maps survey fields to the parameters a front end needs to draw
// the per-step illustrations. Every function here is pure.
package visual

import (
	"math"
	"strings"

	"smarthika/pkg/domain"
)

// Gauge needle sweep in degrees.
const (
	GaugeMinAngle = -90.0
	GaugeMaxAngle = 90.0
)

// ClampPercent bounds p to [0, 100]. NaN becomes 0.
func ClampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// GaugeAngle maps a percentage onto the needle sweep.
func GaugeAngle(percent float64) float64 {
	return Lerp(GaugeMinAngle, GaugeMaxAngle, ClampPercent(percent)/100)
}

// PercentToPixels converts a clamped percentage of span to pixels.
func PercentToPixels(percent, span float64) float64 {
	if span <= 0 {
		return 0
	}
	return span * ClampPercent(percent) / 100
}

// Lerp interpolates between a and b. t is clamped to [0, 1].
func Lerp(a, b, t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a + (b-a)*t
}

// finite maps NaN and the infinities to zero so scene values always encode.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ToAcres converts value in unit to acres.
func ToAcres(value float64, unit string) float64 {
	if value <= 0 {
		return 0
	}
	return finite(value * domain.AcresPerUnit(unit))
}

// SideArea returns the area of a length x width metre rectangle in acres.
func SideArea(length, width float64) float64 {
	if length <= 0 || width <= 0 {
		return 0
	}
	return ToAcres(finite(length*width), domain.UnitSqm)
}

// FrictionLoss is the Hazen-Williams head loss in metres for water flowing
// through lengthM metres of pipe.
func FrictionLoss(material string, flowLPM, diameterMM, lengthM float64) float64 {
	if flowLPM <= 0 || diameterMM <= 0 || lengthM <= 0 {
		return 0
	}
	q := flowLPM / 60000
	d := diameterMM / 1000
	c := domain.HazenWilliamsC(material)
	return finite(10.67 * lengthM * math.Pow(q, 1.852) / (math.Pow(c, 1.852) * math.Pow(d, 4.8704)))
}

// DefaultColor is returned by every colour lookup for unknown keys.
const DefaultColor = "#9CA3AF"

// SoilColor returns the swatch for a soil texture.
func SoilColor(texture string) string {
	switch normalize(texture) {
	case domain.SoilSandy:
		return "#E8C872"
	case domain.SoilLoamy:
		return "#8B5A2B"
	case domain.SoilClay:
		return "#B5651D"
	case domain.SoilSilt:
		return "#A89F91"
	case domain.SoilBlack:
		return "#3B3B3B"
	case domain.SoilRed:
		return "#A0412D"
	case domain.SoilLaterite:
		return "#C1440E"
	default:
		return DefaultColor
	}
}

// WaterSourceColor returns the badge colour for a water source.
func WaterSourceColor(source string) string {
	switch strings.TrimSpace(source) {
	case domain.SourceBorewell:
		return "#2563EB"
	case domain.SourceOpenWell:
		return "#0EA5E9"
	case domain.SourceFarmPond:
		return "#14B8A6"
	case domain.SourceCanal:
		return "#0891B2"
	case domain.SourceRiver:
		return "#1D4ED8"
	default:
		return DefaultColor
	}
}

// PipeColor returns the stroke colour for a pipe material.
func PipeColor(material string) string {
	switch normalize(material) {
	case domain.PipePVC:
		return "#F3F4F6"
	case domain.PipeHDPE:
		return "#111827"
	case domain.PipeGI:
		return "#6B7280"
	case domain.PipeCement:
		return "#D1D5DB"
	default:
		return DefaultColor
	}
}

// PowerColor returns the gauge colour for a power source.
func PowerColor(source string) string {
	switch normalize(source) {
	case "grid":
		return "#F59E0B"
	case "solar":
		return "#FACC15"
	case "diesel":
		return "#78716C"
	case "hybrid":
		return "#84CC16"
	default:
		return DefaultColor
	}
}

// CropColor returns the swatch for a crop.
func CropColor(crop string) string {
	switch normalize(crop) {
	case "paddy", "rice":
		return "#84CC16"
	case "wheat":
		return "#EAB308"
	case "sugarcane":
		return "#22C55E"
	case "cotton":
		return "#F5F5F4"
	case "banana":
		return "#FDE047"
	case "coconut", "arecanut":
		return "#65A30D"
	case "vegetables":
		return "#16A34A"
	case "maize":
		return "#FBBF24"
	case "pulses":
		return "#A16207"
	default:
		return DefaultColor
	}
}

// MethodLabel returns the display label for an irrigation method.
func MethodLabel(method string) string {
	switch normalize(method) {
	case "flood":
		return "Flood irrigation"
	case "furrow":
		return "Furrow irrigation"
	case "sprinkler":
		return "Sprinkler"
	case "drip":
		return "Drip"
	case "rainfed":
		return "Rain-fed"
	case "":
		return "Not specified"
	default:
		return method
	}
}

// GoalLabel returns the chip label for a goal.
func GoalLabel(goal string) string {
	switch normalize(goal) {
	case "savewater":
		return "Save water"
	case "savelabor", "savelabour":
		return "Save labour"
	case "increaseyield":
		return "Increase yield"
	case "reducecost":
		return "Reduce cost"
	case "automation":
		return "Automation"
	case "remotemonitoring":
		return "Remote monitoring"
	default:
		return strings.TrimSpace(goal)
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
