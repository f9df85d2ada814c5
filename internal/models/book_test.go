package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ruisth/Library/internal/models"
)

func validBook() models.Book {
	return models.Book{
		Title:            "Unlocking Android",
		ISBN:             "1933988673",
		PageCount:        416,
		PublishedDate:    time.Date(2009, 4, 1, 0, 0, 0, 0, time.UTC),
		ThumbnailURL:     "https://example.com/thumb.jpg",
		ShortDescription: "A developer's guide.",
		LongDescription:  "Android is an open source mobile phone platform.",
		Status:           "PUBLISH",
		Authors:          []string{"W. Frank Ableson"},
		Categories:       []string{"Open Source", "Mobile"},
	}
}

func TestBookValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Book)
		wantErr string
	}{
		{"valid book", func(b *models.Book) {}, ""},
		{"price is optional", func(b *models.Book) { b.Price = 0 }, ""},
		{"missing title", func(b *models.Book) { b.Title = "" }, "title"},
		{"missing isbn", func(b *models.Book) { b.ISBN = "" }, "isbn"},
		{"zero pageCount", func(b *models.Book) { b.PageCount = 0 }, "pageCount"},
		{"zero publishedDate", func(b *models.Book) { b.PublishedDate = time.Time{} }, "publishedDate"},
		{"missing thumbnailUrl", func(b *models.Book) { b.ThumbnailURL = "" }, "thumbnailUrl"},
		{"missing shortDescription", func(b *models.Book) { b.ShortDescription = "" }, "shortDescription"},
		{"missing longDescription", func(b *models.Book) { b.LongDescription = "" }, "longDescription"},
		{"missing status", func(b *models.Book) { b.Status = "" }, "status"},
		{"no authors", func(b *models.Book) { b.Authors = nil }, "authors"},
		{"no categories", func(b *models.Book) { b.Categories = nil }, "categories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := validBook()
			tt.mutate(&book)

			err := book.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestUserValidate(t *testing.T) {
	user := models.User{FirstName: "Ana", LastName: "Silva"}
	assert.NoError(t, user.Validate())

	user.LastName = ""
	assert.ErrorContains(t, user.Validate(), "last_name")

	user = models.User{LastName: "Silva"}
	assert.ErrorContains(t, user.Validate(), "first_name")
}

func TestCommentValidate(t *testing.T) {
	comment := models.Comment{UserID: 1, BookID: 2, Comment: "Great read"}
	assert.NoError(t, comment.Validate())

	assert.ErrorContains(t, (&models.Comment{BookID: 2, Comment: "x"}).Validate(), "user_id")
	assert.ErrorContains(t, (&models.Comment{UserID: 1, Comment: "x"}).Validate(), "book_id")
	assert.ErrorContains(t, (&models.Comment{UserID: 1, BookID: 2}).Validate(), "comment")
}

func TestLivrariaValidate(t *testing.T) {
	livraria := models.Livraria{
		ID:    "Bertrand Chiado",
		Books: []models.BookRef{{ID: 1, Title: "Unlocking Android"}},
		Geometry: &models.Geometry{
			Type:        models.GeometryPoint,
			Coordinates: []float64{-9.1422, 38.7106},
		},
	}
	assert.NoError(t, livraria.Validate())

	livraria.ID = ""
	assert.ErrorContains(t, livraria.Validate(), "_id")

	livraria.ID = "Bertrand Chiado"
	livraria.Books = []models.BookRef{{Title: "No ID"}}
	assert.ErrorContains(t, livraria.Validate(), "numeric _id")

	livraria.Books = nil
	livraria.Geometry.Type = "LineString"
	assert.ErrorContains(t, livraria.Validate(), "geometry type")
}

func TestLivrariaDedupeBooks(t *testing.T) {
	livraria := models.Livraria{
		ID: "FNAC Colombo",
		Books: []models.BookRef{
			{ID: 1, Title: "A"},
			{ID: 2, Title: "B"},
			{ID: 1, Title: "A again"},
			{ID: 3, Title: "C"},
			{ID: 2, Title: "B again"},
		},
	}

	livraria.DedupeBooks()

	assert.Equal(t, []models.BookRef{
		{ID: 1, Title: "A"},
		{ID: 2, Title: "B"},
		{ID: 3, Title: "C"},
	}, livraria.Books)
}
