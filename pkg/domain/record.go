package domain

import (
	"encoding/json"
	"fmt"
)

// ModuleData is implemented by every per-module variant of the submission record.
type ModuleData interface {
	ModuleID() ModuleID
}

// Profile holds farmer contact details.
type Profile struct {
	CustomerName      string `json:"customerName"`
	WhatsappNumber    string `json:"whatsappNumber"`
	Email             string `json:"email"`
	State             string `json:"state"`
	District          string `json:"district"`
	Village           string `json:"village"`
	PreferredLanguage string `json:"preferredLanguage"`
}

// Dimensions are the measured sides of a rectangular field, in metres.
type Dimensions struct {
	Length Number `json:"length"`
	Width  Number `json:"width"`
}

// Canvas holds land details.
type Canvas struct {
	TotalArea      Number     `json:"totalArea"`
	AreaUnit       string     `json:"areaUnit"`
	FieldShape     string     `json:"fieldShape"`
	SideDimensions Dimensions `json:"sideDimensions"`
	SoilTextures   []string   `json:"soilTextures"`
	Terrain        string     `json:"terrain"`
}

// Heart holds water sources and how many of each the farm has.
type Heart struct {
	WaterSources      []string `json:"waterSources"`
	BorewellCount     Count    `json:"borewellCount"`
	OpenWellCount     Count    `json:"openWellCount"`
	FarmPondCount     Count    `json:"farmPondCount"`
	CanalCount        Count    `json:"canalCount"`
	RiverCount        Count    `json:"riverCount"`
	WaterDepth        Number   `json:"waterDepth"`
	WaterAvailability string   `json:"waterAvailability"`
}

// Arteries holds the pipe network.
type Arteries struct {
	PipeMaterial   string `json:"pipeMaterial"`
	PipeDiameter   Number `json:"pipeDiameter"`
	MainlineLength Number `json:"mainlineLength"`
	FlowRate       Number `json:"flowRate"`
}

// Pulse holds the power supply.
type Pulse struct {
	PowerSource       string `json:"powerSource"`
	Phase             string `json:"phase"`
	SupplyHoursPerDay Number `json:"supplyHoursPerDay"`
	PumpHorsepower    Number `json:"pumpHorsepower"`
}

// Shelter holds the pump house and installation site.
type Shelter struct {
	HasPumpHouse    bool     `json:"hasPumpHouse"`
	StarterType     string   `json:"starterType"`
	DistanceToField Number   `json:"distanceToField"`
	Concerns        []string `json:"concerns"`
}

// Biology holds crops.
type Biology struct {
	Crops       []string `json:"crops"`
	PrimaryCrop string   `json:"primaryCrop"`
	Season      string   `json:"season"`
}

// Baseline holds the current irrigation practice and running costs.
type Baseline struct {
	CurrentMethod     string `json:"currentMethod"`
	MonthlyWaterCost  Number `json:"monthlyWaterCost"`
	MonthlyPowerCost  Number `json:"monthlyPowerCost"`
	LaborHoursPerWeek Number `json:"laborHoursPerWeek"`
}

// Shed holds water storage.
type Shed struct {
	StorageTypes          []string `json:"storageTypes"`
	StorageCapacityLitres Number   `json:"storageCapacityLitres"`
	FillPercentage        Number   `json:"fillPercentage"`
}

// Vision holds goals, budget and timeline.
type Vision struct {
	Goals               []string `json:"goals"`
	BudgetRange         string   `json:"budgetRange"`
	Timeline            string   `json:"timeline"`
	InterestedInSubsidy bool     `json:"interestedInSubsidy"`
	Notes               string   `json:"notes"`
}

func (Profile) ModuleID() ModuleID  { return ModuleProfile }
func (Canvas) ModuleID() ModuleID   { return ModuleCanvas }
func (Heart) ModuleID() ModuleID    { return ModuleHeart }
func (Arteries) ModuleID() ModuleID { return ModuleArteries }
func (Pulse) ModuleID() ModuleID    { return ModulePulse }
func (Shelter) ModuleID() ModuleID  { return ModuleShelter }
func (Biology) ModuleID() ModuleID  { return ModuleBiology }
func (Baseline) ModuleID() ModuleID { return ModuleBaseline }
func (Shed) ModuleID() ModuleID     { return ModuleShed }
func (Vision) ModuleID() ModuleID   { return ModuleVision }

// Record is the full submission record, keyed by module id when serialized.
type Record struct {
	Profile  Profile  `json:"profile"`
	Canvas   Canvas   `json:"canvas"`
	Heart    Heart    `json:"heart"`
	Arteries Arteries `json:"arteries"`
	Pulse    Pulse    `json:"pulse"`
	Shelter  Shelter  `json:"shelter"`
	Biology  Biology  `json:"biology"`
	Baseline Baseline `json:"baseline"`
	Shed     Shed     `json:"shed"`
	Vision   Vision   `json:"vision"`
}

// DefaultRecord returns the skeleton a new survey starts from.
func DefaultRecord() Record {
	return Record{
		Canvas: Canvas{
			AreaUnit:     UnitAcre,
			SoilTextures: []string{SoilLoamy},
		},
		Heart:   Heart{WaterSources: []string{}},
		Shelter: Shelter{Concerns: []string{}},
		Biology: Biology{Crops: []string{}},
		Shed:    Shed{StorageTypes: []string{}},
		Vision:  Vision{Goals: []string{}},
	}
}

// Module returns the variant stored for id, or nil for an unknown id.
func (r Record) Module(id ModuleID) ModuleData {
	switch id {
	case ModuleProfile:
		return r.Profile
	case ModuleCanvas:
		return r.Canvas
	case ModuleHeart:
		return r.Heart
	case ModuleArteries:
		return r.Arteries
	case ModulePulse:
		return r.Pulse
	case ModuleShelter:
		return r.Shelter
	case ModuleBiology:
		return r.Biology
	case ModuleBaseline:
		return r.Baseline
	case ModuleShed:
		return r.Shed
	case ModuleVision:
		return r.Vision
	default:
		return nil
	}
}

// SetModule replaces exactly one module variant.
func (r *Record) SetModule(data ModuleData) {
	switch v := data.(type) {
	case Profile:
		r.Profile = v
	case Canvas:
		r.Canvas = v
	case Heart:
		r.Heart = v
	case Arteries:
		r.Arteries = v
	case Pulse:
		r.Pulse = v
	case Shelter:
		r.Shelter = v
	case Biology:
		r.Biology = v
	case Baseline:
		r.Baseline = v
	case Shed:
		r.Shed = v
	case Vision:
		r.Vision = v
	default:
		panic(fmt.Sprintf("domain: unsupported module data %T", data))
	}
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	cp := r
	cp.Canvas.SoilTextures = cloneStrings(r.Canvas.SoilTextures)
	cp.Heart.WaterSources = cloneStrings(r.Heart.WaterSources)
	cp.Shelter.Concerns = cloneStrings(r.Shelter.Concerns)
	cp.Biology.Crops = cloneStrings(r.Biology.Crops)
	cp.Shed.StorageTypes = cloneStrings(r.Shed.StorageTypes)
	cp.Vision.Goals = cloneStrings(r.Vision.Goals)
	return cp
}

// Merge shallow-merges patch into the named module: each key present in patch
// replaces the corresponding top-level field, every other field and every other
// module is left untouched. The record is unchanged when an error is returned.
func (r *Record) Merge(id ModuleID, patch map[string]any) error {
	current := r.Module(id)
	if current == nil {
		return fmt.Errorf("unknown module %q", id)
	}
	merged, err := MergeModule(current, patch)
	if err != nil {
		return err
	}
	r.SetModule(merged)
	return nil
}

// MergeModule returns data with the keys of patch applied on top.
func MergeModule(data ModuleData, patch map[string]any) (ModuleData, error) {
	base, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", data.ModuleID(), err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", data.ModuleID(), err)
	}
	for key, value := range patch {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", data.ModuleID(), key, err)
		}
		fields[key] = raw
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", data.ModuleID(), err)
	}
	return DecodeModule(data.ModuleID(), merged)
}

// DecodeModule decodes raw JSON into the variant for id.
func DecodeModule(id ModuleID, raw []byte) (ModuleData, error) {
	var (
		out ModuleData
		err error
	)
	switch id {
	case ModuleProfile:
		var v Profile
		err = json.Unmarshal(raw, &v)
		out = v
	case ModuleCanvas:
		var v Canvas
		err = json.Unmarshal(raw, &v)
		out = v
	case ModuleHeart:
		var v Heart
		err = json.Unmarshal(raw, &v)
		out = v
	case ModuleArteries:
		var v Arteries
		err = json.Unmarshal(raw, &v)
		out = v
	case ModulePulse:
		var v Pulse
		err = json.Unmarshal(raw, &v)
		out = v
	case ModuleShelter:
		var v Shelter
		err = json.Unmarshal(raw, &v)
		out = v
	case ModuleBiology:
		var v Biology
		err = json.Unmarshal(raw, &v)
		out = v
	case ModuleBaseline:
		var v Baseline
		err = json.Unmarshal(raw, &v)
		out = v
	case ModuleShed:
		var v Shed
		err = json.Unmarshal(raw, &v)
		out = v
	case ModuleVision:
		var v Vision
		err = json.Unmarshal(raw, &v)
		out = v
	default:
		return nil, fmt.Errorf("unknown module %q", id)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return out, nil
}

// DecodeFields builds a module variant from a loose field map, starting from the zero value.
func DecodeFields(id ModuleID, fields map[string]any) (ModuleData, error) {
	zero, err := DecodeModule(id, []byte("{}"))
	if err != nil {
		return nil, err
	}
	return MergeModule(zero, fields)
}

// FieldMap returns the module's fields keyed by their JSON names.
func FieldMap(data ModuleData) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
