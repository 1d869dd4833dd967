package visual

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthika/pkg/domain"
)

func TestGaugeAngle(t *testing.T) {
	cases := []struct {
		percent float64
		want    float64
	}{
		{-10, -90},
		{0, -90},
		{25, -45},
		{50, 0},
		{100, 90},
		{150, 90},
		{math.NaN(), -90},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, GaugeAngle(tc.percent), 1e-9, "percent=%v", tc.percent)
	}
}

func TestPercentToPixelsAndLerp(t *testing.T) {
	assert.Equal(t, 60.0, PercentToPixels(50, 120))
	assert.Equal(t, 120.0, PercentToPixels(300, 120))
	assert.Zero(t, PercentToPixels(50, -1))
	assert.Equal(t, 5.0, Lerp(0, 10, 0.5))
	assert.Equal(t, 10.0, Lerp(0, 10, 2))
	assert.Equal(t, 0.0, Lerp(0, 10, -1))
}

func TestAreaConversions(t *testing.T) {
	assert.InDelta(t, 2.47105, ToAcres(1, "hectare"), 1e-9)
	assert.InDelta(t, 3, ToAcres(3, "unknown-unit"), 1e-9)
	assert.Zero(t, ToAcres(-2, "acre"))
	assert.InDelta(t, 0.988420, SideArea(100, 40), 1e-6)
	assert.Zero(t, SideArea(0, 40))
}

func TestFrictionLoss(t *testing.T) {
	pvc := FrictionLoss(domain.PipePVC, 300, 63, 100)
	gi := FrictionLoss(domain.PipeGI, 300, 63, 100)
	require.Greater(t, pvc, 0.0)
	assert.Greater(t, gi, pvc, "rougher pipe loses more head")
	assert.InDelta(t, 2*pvc, FrictionLoss(domain.PipePVC, 300, 63, 200), 1e-9)
	assert.Zero(t, FrictionLoss(domain.PipePVC, 0, 63, 100))
	assert.Zero(t, FrictionLoss(domain.PipePVC, 300, 0, 100))
	assert.Zero(t, FrictionLoss(domain.PipePVC, 300, 63, -5))
	// 300 L/min through 100 m of 63 mm PVC is roughly 3.8 m of head.
	assert.InDelta(t, 3.8, pvc, 0.2)
}

func TestLookupsHaveDefaults(t *testing.T) {
	assert.Equal(t, DefaultColor, SoilColor("moon-dust"))
	assert.Equal(t, DefaultColor, WaterSourceColor(""))
	assert.Equal(t, DefaultColor, PipeColor("bamboo"))
	assert.Equal(t, DefaultColor, PowerColor("wind"))
	assert.Equal(t, DefaultColor, CropColor("saffron"))
	assert.NotEqual(t, DefaultColor, SoilColor(" Loamy "))
	assert.Equal(t, "Not specified", MethodLabel(""))
	assert.Equal(t, "bucket", MethodLabel("bucket"))
	assert.Equal(t, "Save water", GoalLabel("saveWater"))
	assert.Equal(t, "custom goal", GoalLabel(" custom goal "))
}

func TestBuildScene(t *testing.T) {
	rec := domain.DefaultRecord()
	rec.Canvas.TotalArea = 2
	rec.Canvas.AreaUnit = domain.UnitHectare
	rec.Canvas.SideDimensions = domain.Dimensions{Length: 200, Width: 100}
	rec.Heart.WaterSources = []string{domain.SourceBorewell, domain.SourceCanal}
	rec.Heart.BorewellCount = 2
	rec.Heart.CanalCount = 1
	rec.Arteries = domain.Arteries{PipeMaterial: domain.PipeHDPE, PipeDiameter: 75, MainlineLength: 150, FlowRate: 250}
	rec.Pulse.SupplyHoursPerDay = 12
	rec.Pulse.PowerSource = "solar"
	rec.Shed.FillPercentage = 75
	rec.Biology.Crops = []string{"banana"}
	rec.Baseline.CurrentMethod = "flood"
	rec.Vision.Goals = []string{"saveWater"}

	scene := BuildScene(rec)
	assert.InDelta(t, 4.9421, scene.Field.Acres, 1e-4)
	assert.Equal(t, FieldFrameWidth, scene.Field.Width)
	assert.Equal(t, 160.0, scene.Field.Height)
	require.Len(t, scene.Field.Soils, 1)
	assert.Equal(t, domain.SoilLoamy, scene.Field.Soils[0].Key)

	require.Len(t, scene.Sources, 2)
	assert.Equal(t, 2, scene.Sources[0].Count)
	assert.Equal(t, "Canal", scene.Sources[1].Label)

	assert.Greater(t, scene.Pipe.FrictionLoss, 0.0)
	assert.Equal(t, 0.0, scene.Power.Angle)
	assert.Equal(t, 90.0, scene.Storage.FillPx)
	assert.Equal(t, "Flood irrigation", scene.Method)
	assert.Equal(t, "Save water", scene.Goals[0].Label)

	assert.Equal(t, scene, BuildScene(rec), "scene is a pure function of the record")
}

func TestBuildSceneEmptyRecord(t *testing.T) {
	scene := BuildScene(domain.DefaultRecord())
	assert.Equal(t, FieldFrameWidth, scene.Field.Width)
	assert.Equal(t, FieldFrameHeight, scene.Field.Height)
	assert.NotNil(t, scene.Sources)
	assert.Zero(t, scene.Pipe.FrictionLoss)
	assert.Equal(t, GaugeMinAngle, scene.Power.Angle)
}

func TestExtremeInputsStayFinite(t *testing.T) {
	assert.Zero(t, ToAcres(1e308, domain.UnitHectare))
	assert.Zero(t, SideArea(1e200, 1e200))
	assert.Zero(t, FrictionLoss(domain.PipePVC, 1e308, 1e-300, 1e308))

	rec := domain.DefaultRecord()
	rec.Canvas.TotalArea = 1e308
	rec.Canvas.AreaUnit = domain.UnitHectare
	rec.Canvas.SideDimensions = domain.Dimensions{Length: 1e-308, Width: 1e-308}
	rec.Arteries = domain.Arteries{PipeMaterial: domain.PipeGI, PipeDiameter: 1e-300, MainlineLength: 1e308, FlowRate: 1e308}

	scene := BuildScene(rec)
	assert.Zero(t, scene.Field.Acres)
	assert.Equal(t, FieldFrameWidth, scene.Field.Width)
	assert.Equal(t, FieldFrameHeight, scene.Field.Height)
	assert.Zero(t, scene.Pipe.FrictionLoss)
	_, err := json.Marshal(scene)
	require.NoError(t, err)
}
