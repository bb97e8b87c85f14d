package model

import "strings"

// EntityType represents the kind of named entity a node stands for
type EntityType string

const (
	EntityPerson       EntityType = "PERSON"
	EntityLocation     EntityType = "LOCATION"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityEvent        EntityType = "EVENT"
	EntityDate         EntityType = "DATE"
	EntityProduct      EntityType = "PRODUCT"
)

// DefaultEdgeLabel is used for connections that arrive without a label
const DefaultEdgeLabel = "related"

// entityAliases maps the shorthand tags emitted by extractors to canonical types
var entityAliases = map[string]EntityType{
	"ORG":          EntityOrganization,
	"ORGANISATION": EntityOrganization,
	"GPE":          EntityLocation,
	"LOC":          EntityLocation,
	"PER":          EntityPerson,
}

// ParseEntityType normalizes a raw type tag. Unknown tags are kept verbatim
// (upper-cased) so they still render, just with the fallback color.
func ParseEntityType(raw string) EntityType {
	tag := strings.ToUpper(strings.TrimSpace(raw))
	if alias, ok := entityAliases[tag]; ok {
		return alias
	}
	return EntityType(tag)
}

// Known returns true for the fixed set of entity types
func (t EntityType) Known() bool {
	switch t {
	case EntityPerson, EntityLocation, EntityOrganization, EntityEvent, EntityDate, EntityProduct:
		return true
	}
	return false
}

// RawNode is a node as delivered by a network query
type RawNode struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Type   string   `json:"type"`
	Weight *float64 `json:"weight,omitempty"`
}

// RawConnection is an edge as delivered by a network query
type RawConnection struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// NetworkResponse is the shared shape of the global, focal and per-article
// network queries. The focal fields are only set by the focal query.
type NetworkResponse struct {
	Nodes              []RawNode       `json:"nodes"`
	Connections        []RawConnection `json:"connections"`
	TotalEntities      int             `json:"total_entities"`
	TotalRelationships int             `json:"total_relationships"`
	FocalEntity        string          `json:"focal_entity,omitempty"`
	MentionCount       int             `json:"mention_count,omitempty"`
}

// IsFocal returns true if the response came from a focal-entity query
func (r *NetworkResponse) IsFocal() bool {
	return r.FocalEntity != ""
}
