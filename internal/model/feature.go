package model

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// AttributeKey identifies a known numeric attribute on a spatial feature.
// The engine works over a fixed vocabulary of environmental fields; anything
// outside it travels in the Extra map and is never interpreted numerically.
type AttributeKey string

const (
	AttrDepth           AttributeKey = "depth"
	AttrTemperature     AttributeKey = "temperature"
	AttrCurrentSpeed    AttributeKey = "current_speed"
	AttrWaveHeight      AttributeKey = "wave_height"
	AttrChlorophyll     AttributeKey = "chlorophyll"
	AttrDistanceToCoast AttributeKey = "distance_to_coast"
	AttrDistanceToPort  AttributeKey = "distance_to_port"
	AttrFishAbundance   AttributeKey = "fish_abundance"
	AttrBiodiversity    AttributeKey = "biodiversity"
	AttrHabitatQuality  AttributeKey = "habitat_quality"
	AttrHumanPressure   AttributeKey = "human_pressure"
	AttrConnectivity    AttributeKey = "connectivity"
	AttrValue           AttributeKey = "value"
)

// knownAttributes is the closed set of numeric fields the engine interprets.
var knownAttributes = map[AttributeKey]bool{
	AttrDepth:           true,
	AttrTemperature:     true,
	AttrCurrentSpeed:    true,
	AttrWaveHeight:      true,
	AttrChlorophyll:     true,
	AttrDistanceToCoast: true,
	AttrDistanceToPort:  true,
	AttrFishAbundance:   true,
	AttrBiodiversity:    true,
	AttrHabitatQuality:  true,
	AttrHumanPressure:   true,
	AttrConnectivity:    true,
	AttrValue:           true,
}

// KnownAttribute reports whether key is part of the engine's fixed numeric
// attribute vocabulary.
func KnownAttribute(key AttributeKey) bool {
	return knownAttributes[key]
}

// Attributes holds the typed numeric fields plus a string extension map for
// everything the engine does not interpret (source tags, layer kinds, names).
type Attributes struct {
	Known map[AttributeKey]float64 `json:"known,omitempty"`
	Extra map[string]string        `json:"extra,omitempty"`
}

// Value returns the numeric attribute for key and whether it is present.
func (a Attributes) Value(key AttributeKey) (float64, bool) {
	v, ok := a.Known[key]
	return v, ok
}

// Clone returns a deep copy so downstream stages can hold attributes without
// sharing mutable maps with the caller.
func (a Attributes) Clone() Attributes {
	out := Attributes{}
	if a.Known != nil {
		out.Known = make(map[AttributeKey]float64, len(a.Known))
		for k, v := range a.Known {
			out.Known[k] = v
		}
	}
	if a.Extra != nil {
		out.Extra = make(map[string]string, len(a.Extra))
		for k, v := range a.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// SpatialFeature is the engine's unit of spatial input: a geometry with a
// declared CRS and typed attributes. Features are immutable once ingested;
// analysis stages that derive new geometry create new features.
type SpatialFeature struct {
	ID         string     `json:"id"`
	Geometry   geom.T     `json:"-"`
	CRS        string     `json:"crs"`
	Attributes Attributes `json:"attributes"`
}

// Validate checks the upstream-collaborator contract: non-null geometry and a
// declared CRS. The engine performs no coordinate-system inference.
func (f *SpatialFeature) Validate() error {
	if f.ID == "" {
		return eris.New("model: feature id is required")
	}
	if f.Geometry == nil {
		return eris.Wrapf(ErrInvalidGeometry, "model: feature %s has no geometry", f.ID)
	}
	if f.CRS == "" {
		return eris.Wrapf(ErrCrsMismatch, "model: feature %s has no declared CRS", f.ID)
	}
	return nil
}

// Kind returns the layer kind tag ("coastline", "candidate", ...) if the
// feature carries one in its extension map.
func (f *SpatialFeature) Kind() string {
	if f.Attributes.Extra == nil {
		return ""
	}
	return f.Attributes.Extra["kind"]
}

// Habitat is a spatial feature with ecological metadata. Created by
// ingestion; read-only to the engine.
type Habitat struct {
	SpatialFeature
	HabitatType string  `json:"habitat_type"`
	Capacity    float64 `json:"capacity"`
}
