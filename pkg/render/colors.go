package render

import "github.com/ritzau/netview/pkg/model"

const fallbackColor = "#6b7280"

var typeColors = map[model.EntityType]string{
	model.EntityPerson:       "#3b82f6",
	model.EntityOrganization: "#10b981",
	model.EntityLocation:     "#f59e0b",
	model.EntityEvent:        "#ef4444",
	model.EntityDate:         "#8b5cf6",
	model.EntityProduct:      "#ec4899",
}

// TypeColor returns the stroke/fill color for an entity type
func TypeColor(t model.EntityType) string {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return fallbackColor
}
