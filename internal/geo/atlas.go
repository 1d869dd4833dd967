// Package geo loads administrative boundary files and marks the region a
// respondent selected.
package geo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"smarthika/internal/blob"
)

// Region is one named boundary.
type Region struct {
	Name     string       `json:"name"`
	Key      string       `json:"key"`
	Geometry orb.Geometry `json:"-"`
}

// Bound returns the region's bounding box.
func (r Region) Bound() orb.Bound {
	if r.Geometry == nil {
		return orb.Bound{}
	}
	return r.Geometry.Bound()
}

func newRegion(name string, g orb.Geometry) Region {
	return Region{Name: name, Key: NormalizeRegionName(name), Geometry: g}
}

var (
	nonWord    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s]+`)
	whitespace = regexp.MustCompile(`\s+`)

	// diacritics folds the marked Latin letters used when romanizing Indian
	// place names, so "Tamil Nādu" and "Tamil Nadu" share a key.
	diacritics = strings.NewReplacer(
		"ā", "a", "á", "a", "à", "a", "â", "a", "ä", "a",
		"ī", "i", "í", "i", "ì", "i", "î", "i", "ï", "i",
		"ū", "u", "ú", "u", "ù", "u", "û", "u", "ü", "u",
		"ē", "e", "é", "e", "è", "e", "ê", "e", "ë", "e",
		"ō", "o", "ó", "o", "ò", "o", "ô", "o", "ö", "o",
		"ṛ", "r", "ṝ", "r", "ḷ", "l",
		"ṭ", "t", "ḍ", "d", "ṇ", "n", "ṅ", "n", "ñ", "n",
		"ś", "s", "ṣ", "s", "ḥ", "h", "ṃ", "m", "ṁ", "m", "ç", "c",
	)
)

// NormalizeRegionName folds a region name for comparison: lower case, common
// diacritics folded, "&" spelled "and", punctuation dropped, whitespace
// collapsed. Letters of other scripts are kept.
func NormalizeRegionName(name string) string {
	s := diacritics.Replace(strings.ToLower(name))
	s = strings.ReplaceAll(s, "&", " and ")
	s = nonWord.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// RegionView is a region as drawn, with its selection state.
type RegionView struct {
	Name     string    `json:"name"`
	Key      string    `json:"key"`
	Selected bool      `json:"selected"`
	Bound    []float64 `json:"bbox,omitempty"`
}

// Highlight marks every region whose key equals the normalized selection.
func Highlight(regions []Region, selected string) []RegionView {
	want := NormalizeRegionName(selected)
	out := make([]RegionView, 0, len(regions))
	for _, r := range regions {
		view := RegionView{Name: r.Name, Key: r.Key, Selected: want != "" && r.Key == want}
		if r.Geometry != nil {
			b := r.Bound()
			view.Bound = []float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
		}
		out = append(out, view)
	}
	return out
}

// DefaultLoadTimeout bounds one boundary file load.
const DefaultLoadTimeout = 10 * time.Second

// Atlas loads country boundary files from the blob store once per country.
type Atlas struct {
	store   blob.Store
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	loaded map[string][]Region
	group  singleflight.Group
}

// AtlasOption customizes an Atlas.
type AtlasOption func(*Atlas)

// WithLoadTimeout overrides DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) AtlasOption {
	return func(a *Atlas) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithAtlasLogger sets the logger.
func WithAtlasLogger(l *zap.Logger) AtlasOption {
	return func(a *Atlas) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAtlas returns an atlas reading from store.
func NewAtlas(store blob.Store, opts ...AtlasOption) *Atlas {
	a := &Atlas{
		store:   store,
		timeout: DefaultLoadTimeout,
		logger:  zap.NewNop(),
		loaded:  make(map[string][]Region),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Regions returns the regions of country. Concurrent callers share one load,
// which runs detached from any single caller's cancellation and is bounded by
// the load timeout. Successful loads are kept for the life of the atlas;
// failures are retried on the next call.
func (a *Atlas) Regions(ctx context.Context, country string) ([]Region, error) {
	key := blob.MapKey(country)
	a.mu.Lock()
	regions, ok := a.loaded[key]
	a.mu.Unlock()
	if ok {
		return regions, nil
	}
	ch := a.group.DoChan(key, func() (any, error) {
		regions, err := a.fetch(context.WithoutCancel(ctx), key)
		if err != nil {
			a.logger.Warn("boundary load failed", zap.String("key", key), zap.Error(err))
			return nil, err
		}
		a.mu.Lock()
		a.loaded[key] = regions
		a.mu.Unlock()
		a.logger.Info("boundary loaded", zap.String("key", key), zap.Int("regions", len(regions)))
		return regions, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Region), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Raw returns the stored boundary document for country.
func (a *Atlas) Raw(ctx context.Context, country string) (blob.Info, io.ReadCloser, error) {
	return a.store.Get(ctx, blob.MapKey(country))
}

// Put stores a boundary document after checking that it decodes, and drops any
// regions cached for the country.
func (a *Atlas) Put(ctx context.Context, country string, raw []byte) (blob.Info, error) {
	regions, err := Decode(raw)
	if err != nil {
		return blob.Info{}, err
	}
	if len(regions) == 0 {
		return blob.Info{}, fmt.Errorf("boundary document for %s has no named regions", country)
	}
	key := blob.MapKey(country)
	info, err := a.store.Put(ctx, key, bytes.NewReader(raw), blob.PutOptions{
		ContentType: "application/json",
		Overwrite:   true,
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store boundary %s: %w", key, err)
	}
	a.group.Forget(key)
	a.mu.Lock()
	delete(a.loaded, key)
	a.mu.Unlock()
	return info, nil
}

func (a *Atlas) fetch(ctx context.Context, key string) ([]Region, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load boundary %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read boundary %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Decode(raw)
}
