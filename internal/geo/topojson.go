package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrUnsupportedFormat is returned for documents that are neither a TopoJSON
// Topology nor a GeoJSON FeatureCollection.
var ErrUnsupportedFormat = errors.New("geo: unsupported boundary document")

type topology struct {
	Type      string                     `json:"type"`
	Transform *transform                 `json:"transform"`
	Arcs      [][][]float64              `json:"arcs"`
	Objects   map[string]json.RawMessage `json:"objects"`
}

type transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoGeometry struct {
	Type        string          `json:"type"`
	Arcs        json.RawMessage `json:"arcs"`
	Coordinates json.RawMessage `json:"coordinates"`
	Properties  map[string]any  `json:"properties"`
	ID          any             `json:"id"`
	Geometries  []topoGeometry  `json:"geometries"`
}

// Decode parses a boundary document into regions.
func Decode(raw []byte) ([]Region, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode boundary document: %w", err)
	}
	switch envelope.Type {
	case "Topology":
		return decodeTopology(raw)
	case "FeatureCollection":
		return decodeFeatureCollection(raw)
	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnsupportedFormat, envelope.Type)
	}
}

func decodeFeatureCollection(raw []byte) ([]Region, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	regions := make([]Region, 0, len(fc.Features))
	for _, f := range fc.Features {
		name := regionName(f.Properties, f.ID)
		if name == "" || f.Geometry == nil {
			continue
		}
		regions = append(regions, newRegion(name, f.Geometry))
	}
	return regions, nil
}

func decodeTopology(raw []byte) ([]Region, error) {
	var topo topology
	if err := json.Unmarshal(raw, &topo); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	if len(topo.Objects) == 0 {
		return nil, fmt.Errorf("decode topology: no objects")
	}
	// Boundary files carry one collection; pick the first by name for stable output.
	names := make([]string, 0, len(topo.Objects))
	for name := range topo.Objects {
		names = append(names, name)
	}
	sort.Strings(names)
	var root topoGeometry
	if err := json.Unmarshal(topo.Objects[names[0]], &root); err != nil {
		return nil, fmt.Errorf("decode topology object %s: %w", names[0], err)
	}
	arcs := topo.decodeArcs()
	geoms := root.Geometries
	if root.Type != "GeometryCollection" {
		geoms = []topoGeometry{root}
	}
	regions := make([]Region, 0, len(geoms))
	for _, g := range geoms {
		name := regionName(g.Properties, g.ID)
		if name == "" {
			continue
		}
		geom, err := g.geometry(arcs, topo.Transform)
		if err != nil {
			return nil, fmt.Errorf("decode region %s: %w", name, err)
		}
		if geom == nil {
			continue
		}
		regions = append(regions, newRegion(name, geom))
	}
	return regions, nil
}

// decodeArcs expands the arc table into absolute coordinates. Quantized
// topologies store delta-encoded integer positions.
func (t topology) decodeArcs() [][]orb.Point {
	out := make([][]orb.Point, len(t.Arcs))
	for i, arc := range t.Arcs {
		pts := make([]orb.Point, 0, len(arc))
		var x, y float64
		for _, pos := range arc {
			if len(pos) < 2 {
				continue
			}
			if t.Transform == nil {
				pts = append(pts, orb.Point{pos[0], pos[1]})
				continue
			}
			x += pos[0]
			y += pos[1]
			pts = append(pts, t.Transform.apply(x, y))
		}
		out[i] = pts
	}
	return out
}

func (tr *transform) apply(x, y float64) orb.Point {
	if tr == nil {
		return orb.Point{x, y}
	}
	return orb.Point{x*tr.Scale[0] + tr.Translate[0], y*tr.Scale[1] + tr.Translate[1]}
}

func (g topoGeometry) geometry(arcs [][]orb.Point, tr *transform) (orb.Geometry, error) {
	switch g.Type {
	case "Polygon":
		var refs [][]int
		if err := json.Unmarshal(g.Arcs, &refs); err != nil {
			return nil, err
		}
		return polygon(arcs, refs)
	case "MultiPolygon":
		var refs [][][]int
		if err := json.Unmarshal(g.Arcs, &refs); err != nil {
			return nil, err
		}
		mp := make(orb.MultiPolygon, 0, len(refs))
		for _, poly := range refs {
			p, err := polygon(arcs, poly)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	case "LineString":
		var refs []int
		if err := json.Unmarshal(g.Arcs, &refs); err != nil {
			return nil, err
		}
		line, err := stitch(arcs, refs)
		return orb.LineString(line), err
	case "Point":
		var pos []float64
		if err := json.Unmarshal(g.Coordinates, &pos); err != nil {
			return nil, err
		}
		if len(pos) < 2 {
			return nil, fmt.Errorf("point needs two coordinates")
		}
		return tr.apply(pos[0], pos[1]), nil
	case "", "null":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: geometry %q", ErrUnsupportedFormat, g.Type)
	}
}

func polygon(arcs [][]orb.Point, rings [][]int) (orb.Polygon, error) {
	poly := make(orb.Polygon, 0, len(rings))
	for _, refs := range rings {
		pts, err := stitch(arcs, refs)
		if err != nil {
			return nil, err
		}
		poly = append(poly, orb.Ring(pts))
	}
	return poly, nil
}

// stitch joins arcs into one path. A negative index ~i walks arc i backwards;
// consecutive arcs share an endpoint which is emitted once.
func stitch(arcs [][]orb.Point, refs []int) ([]orb.Point, error) {
	var out []orb.Point
	for n, ref := range refs {
		idx, reverse := ref, false
		if ref < 0 {
			idx, reverse = ^ref, true
		}
		if idx >= len(arcs) {
			return nil, fmt.Errorf("arc %d out of range", idx)
		}
		arc := arcs[idx]
		seg := make([]orb.Point, len(arc))
		copy(seg, arc)
		if reverse {
			for i, j := 0, len(seg)-1; i < j; i, j = i+1, j-1 {
				seg[i], seg[j] = seg[j], seg[i]
			}
		}
		if n > 0 && len(seg) > 0 {
			seg = seg[1:]
		}
		out = append(out, seg...)
	}
	return out, nil
}

var nameKeys = []string{"name", "NAME", "st_nm", "ST_NM", "NAME_1", "state", "district"}

func regionName(props map[string]any, id any) string {
	for _, key := range nameKeys {
		if s, ok := props[key].(string); ok && s != "" {
			return s
		}
	}
	if s, ok := id.(string); ok {
		return s
	}
	return ""
}
