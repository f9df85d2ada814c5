package models

import "fmt"

// BookRef is the shallow {_id, title} reference a livraria keeps for each
// book it stocks.
type BookRef struct {
	ID    int    `bson:"_id" json:"_id"`
	Title string `bson:"title" json:"title"`
}

// Geometry is a GeoJSON Point or Polygon. Coordinates stays untyped because
// the nesting depth depends on the geometry type.
type Geometry struct {
	Type        string `bson:"type" json:"type"`
	Coordinates any    `bson:"coordinates" json:"coordinates"`
}

// Livraria ids are caller-supplied, unlike the other entities. The dataset
// the course ships identifies bookstores by name.
type Livraria struct {
	ID       string    `bson:"_id" json:"_id"`
	Books    []BookRef `bson:"books" json:"books"`
	Geometry *Geometry `bson:"geometry,omitempty" json:"geometry,omitempty"`
}

const (
	LivrariaEntity = "livraria"

	GeometryPoint   = "Point"
	GeometryPolygon = "Polygon"
)

func (l *Livraria) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("missing or invalid field: _id")
	}
	for _, ref := range l.Books {
		if ref.ID <= 0 {
			return fmt.Errorf("book reference without a numeric _id: %q", ref.Title)
		}
	}
	if l.Geometry != nil && l.Geometry.Type != GeometryPoint && l.Geometry.Type != GeometryPolygon {
		return fmt.Errorf("unsupported geometry type: %s", l.Geometry.Type)
	}
	return nil
}

// DedupeBooks drops repeated book references, keeping the first occurrence
// of each _id.
func (l *Livraria) DedupeBooks() {
	seen := make(map[int]bool, len(l.Books))
	out := l.Books[:0]
	for _, ref := range l.Books {
		if seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true
		out = append(out, ref)
	}
	l.Books = out
}
