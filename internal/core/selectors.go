package core

import (
	"slices"

	"smarthika/pkg/domain"
)

// ToggleSoil flips texture in the canvas soil selection. Removing the only
// selected texture is a no-op so the selection never becomes empty.
func ToggleSoil(c domain.Canvas, texture string) domain.Canvas {
	if texture == "" {
		return c
	}
	if idx := slices.Index(c.SoilTextures, texture); idx >= 0 {
		if len(c.SoilTextures) == 1 {
			return c
		}
		c.SoilTextures = slices.Delete(slices.Clone(c.SoilTextures), idx, idx+1)
		return c
	}
	c.SoilTextures = append(slices.Clone(c.SoilTextures), texture)
	return c
}

// ToggleSource flips source in the heart selection. Deselecting resets the
// associated count to 0; selecting sets it to 1.
func ToggleSource(h domain.Heart, source string) domain.Heart {
	if source == "" {
		return h
	}
	if idx := slices.Index(h.WaterSources, source); idx >= 0 {
		h.WaterSources = slices.Delete(slices.Clone(h.WaterSources), idx, idx+1)
		h.SetWaterSourceCount(source, 0)
		return h
	}
	h.WaterSources = append(slices.Clone(h.WaterSources), source)
	h.SetWaterSourceCount(source, 1)
	return h
}
