package visual

import (
	"math"

	"smarthika/pkg/domain"
)

// Canvas frame the field illustration is fitted into, in pixels.
const (
	FieldFrameWidth  = 320.0
	FieldFrameHeight = 200.0
)

// Swatch is a coloured, labelled chip.
type Swatch struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Badge is a water source with its count.
type Badge struct {
	Swatch
	Count int `json:"count"`
}

// Gauge is a needle gauge.
type Gauge struct {
	Percent float64 `json:"percent"`
	Angle   float64 `json:"angle"`
	Color   string  `json:"color,omitempty"`
}

// FieldScene sizes the field rectangle.
type FieldScene struct {
	Acres  float64  `json:"acres"`
	Width  float64  `json:"widthPx"`
	Height float64  `json:"heightPx"`
	Soils  []Swatch `json:"soils"`
}

// PipeScene draws the mainline.
type PipeScene struct {
	Material     string  `json:"material"`
	Color        string  `json:"color"`
	FrictionLoss float64 `json:"frictionLossM"`
}

// StorageScene fills the tank.
type StorageScene struct {
	Gauge
	FillPx float64 `json:"fillPx"`
}

// Scene holds the visual parameters of every module.
type Scene struct {
	Field   FieldScene   `json:"field"`
	Sources []Badge      `json:"sources"`
	Pipe    PipeScene    `json:"pipe"`
	Power   Gauge        `json:"power"`
	Storage StorageScene `json:"storage"`
	Crops   []Swatch     `json:"crops"`
	Method  string       `json:"method"`
	Goals   []Swatch     `json:"goals"`
}

// Upper bounds for gauges that are not percentages in the record.
const (
	MaxSupplyHours  = 24.0
	StorageHeightPx = 120.0
)

// BuildScene derives the scene for rec.
func BuildScene(rec domain.Record) Scene {
	return Scene{
		Field:   fieldScene(rec.Canvas),
		Sources: sourceBadges(rec.Heart),
		Pipe: PipeScene{
			Material: rec.Arteries.PipeMaterial,
			Color:    PipeColor(rec.Arteries.PipeMaterial),
			FrictionLoss: FrictionLoss(rec.Arteries.PipeMaterial,
				rec.Arteries.FlowRate.Float64(),
				rec.Arteries.PipeDiameter.Float64(),
				rec.Arteries.MainlineLength.Float64()),
		},
		Power:   powerGauge(rec.Pulse),
		Storage: storageScene(rec.Shed),
		Crops:   cropSwatches(rec.Biology),
		Method:  MethodLabel(rec.Baseline.CurrentMethod),
		Goals:   goalChips(rec.Vision),
	}
}

func fieldScene(c domain.Canvas) FieldScene {
	length := c.SideDimensions.Length.Float64()
	width := c.SideDimensions.Width.Float64()
	fs := FieldScene{Acres: ToAcres(c.TotalArea.Float64(), c.AreaUnit)}
	if length > 0 && width > 0 {
		if fs.Acres == 0 {
			fs.Acres = SideArea(length, width)
		}
		scale := math.Min(FieldFrameWidth/length, FieldFrameHeight/width)
		fs.Width = finite(length * scale)
		fs.Height = finite(width * scale)
	}
	if fs.Width <= 0 || fs.Height <= 0 {
		fs.Width, fs.Height = FieldFrameWidth, FieldFrameHeight
	}
	fs.Soils = make([]Swatch, 0, len(c.SoilTextures))
	for _, s := range c.SoilTextures {
		fs.Soils = append(fs.Soils, Swatch{Key: s, Label: s, Color: SoilColor(s)})
	}
	return fs
}

func sourceBadges(h domain.Heart) []Badge {
	out := make([]Badge, 0, len(h.WaterSources))
	for _, src := range h.WaterSources {
		count, _ := h.WaterSourceCount(src)
		out = append(out, Badge{
			Swatch: Swatch{Key: src, Label: domain.WaterSourceLabel(src), Color: WaterSourceColor(src)},
			Count:  count,
		})
	}
	return out
}

func powerGauge(p domain.Pulse) Gauge {
	pct := ClampPercent(p.SupplyHoursPerDay.Float64() / MaxSupplyHours * 100)
	return Gauge{Percent: pct, Angle: GaugeAngle(pct), Color: PowerColor(p.PowerSource)}
}

func storageScene(s domain.Shed) StorageScene {
	pct := ClampPercent(s.FillPercentage.Float64())
	return StorageScene{
		Gauge:  Gauge{Percent: pct, Angle: GaugeAngle(pct)},
		FillPx: PercentToPixels(pct, StorageHeightPx),
	}
}

func cropSwatches(b domain.Biology) []Swatch {
	out := make([]Swatch, 0, len(b.Crops))
	for _, c := range b.Crops {
		out = append(out, Swatch{Key: c, Label: c, Color: CropColor(c)})
	}
	return out
}

func goalChips(v domain.Vision) []Swatch {
	out := make([]Swatch, 0, len(v.Goals))
	for _, g := range v.Goals {
		out = append(out, Swatch{Key: g, Label: GoalLabel(g), Color: DefaultColor})
	}
	return out
}
