package models

import (
	"fmt"
	"time"
)

type Book struct {
	ID               int       `bson:"_id" json:"_id"`
	Title            string    `bson:"title" json:"title"`
	ISBN             string    `bson:"isbn" json:"isbn"`
	PageCount        int       `bson:"pageCount" json:"pageCount"`
	PublishedDate    time.Time `bson:"publishedDate" json:"publishedDate"`
	ThumbnailURL     string    `bson:"thumbnailUrl" json:"thumbnailUrl"`
	ShortDescription string    `bson:"shortDescription" json:"shortDescription"`
	LongDescription  string    `bson:"longDescription" json:"longDescription"`
	Status           string    `bson:"status" json:"status"`
	Authors          []string  `bson:"authors" json:"authors"`
	Categories       []string  `bson:"categories" json:"categories"`
	Price            float64   `bson:"price,omitempty" json:"price,omitempty"`
}

const (
	BookEntity = "book"
)

// Validate checks the required-field set for book creation. Price is the
// only optional field.
func (b *Book) Validate() error {
	required := []struct {
		field string
		ok    bool
	}{
		{"title", b.Title != ""},
		{"isbn", b.ISBN != ""},
		{"pageCount", b.PageCount > 0},
		{"publishedDate", !b.PublishedDate.IsZero()},
		{"thumbnailUrl", b.ThumbnailURL != ""},
		{"shortDescription", b.ShortDescription != ""},
		{"longDescription", b.LongDescription != ""},
		{"status", b.Status != ""},
		{"authors", len(b.Authors) > 0},
		{"categories", len(b.Categories) > 0},
	}
	for _, r := range required {
		if !r.ok {
			return fmt.Errorf("missing or invalid field: %s", r.field)
		}
	}
	return nil
}
