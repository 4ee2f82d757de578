// Package content manages the editable site copy: a nested key-value tree
// with shipped defaults and admin overrides on top. Overrides persist to the
// local durable store on every mutation; there is no server round-trip.
package content

import (
	"fmt"
	"sync"

	"atlasforge.io/internal/kv"
)

const overridesKey = "content_overrides"

// Block is a nested key-value tree. Leaves are strings or numbers; interior
// nodes are Blocks.
type Block = map[string]any

// Defaults is the content a fresh deployment renders before any edit. The
// full shape is always present; overrides patch it, they never replace it.
func Defaults() Block {
	return Block{
		"hero": Block{
			"title":    "Precision Manufacturing, Delivered",
			"subtitle": "Forty years of machining, fabrication and assembly for partners worldwide.",
			"cta":      "Explore Our Capabilities",
		},
		"about": Block{
			"heading": "About Atlas Forge",
			"body":    "Atlas Forge is a family-owned manufacturer supplying precision components to the aerospace, energy and transport sectors.",
		},
		"globalFootprint": Block{
			"heading": "Global Footprint",
			"body":    "Production sites and sales offices across three continents.",
			"stats": Block{
				"plants":    "6",
				"countries": "11",
				"employees": "1400",
			},
		},
	}
}

// Service owns the content tree. Lazily initialized on first read.
type Service struct {
	store *kv.Store

	mu        sync.Mutex
	loaded    bool
	overrides Block
}

func NewService(store *kv.Store) *Service {
	return &Service{store: store}
}

// Get returns the effective tree: defaults with overrides merged on top.
func (s *Service) Get() (Block, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return merge(Defaults(), s.overrides), nil
}

// Update deep-merges patch into the overrides and persists them before
// returning the new effective tree. A failed persist leaves the previous
// overrides in place.
func (s *Service) Update(patch Block) (Block, error) {
	if len(patch) == 0 {
		return nil, fmt.Errorf("content: empty patch")
	}
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := merge(s.overrides, patch)
	if s.store != nil {
		if err := s.store.Set(overridesKey, next); err != nil {
			return nil, fmt.Errorf("content: persist: %w", err)
		}
	}
	s.overrides = next
	return merge(Defaults(), s.overrides), nil
}

func (s *Service) ensureLoaded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	s.overrides = Block{}
	if s.store != nil {
		if _, err := s.store.Get(overridesKey, &s.overrides); err != nil {
			return fmt.Errorf("content: load overrides: %w", err)
		}
		if s.overrides == nil {
			s.overrides = Block{}
		}
	}
	s.loaded = true
	return nil
}

// merge returns base with patch applied on top. Nested maps merge
// recursively; anything else in patch wins. Neither input is mutated.
func merge(base, patch Block) Block {
	out := make(Block, len(base))
	for k, v := range base {
		out[k] = copyValue(v)
	}
	for k, pv := range patch {
		bm, baseIsMap := out[k].(Block)
		pm, patchIsMap := asBlock(pv)
		if baseIsMap && patchIsMap {
			out[k] = merge(bm, pm)
			continue
		}
		out[k] = copyValue(pv)
	}
	return out
}

func asBlock(v any) (Block, bool) {
	switch t := v.(type) {
	case Block:
		return t, true
	default:
		return nil, false
	}
}

func copyValue(v any) any {
	if m, ok := asBlock(v); ok {
		return merge(m, nil)
	}
	return v
}
