package models

import (
	"fmt"
	"time"
)

type Review struct {
	BookID     int       `bson:"book_id" json:"book_id"`
	Score      float64   `bson:"score" json:"score"`
	ReviewDate time.Time `bson:"review_date" json:"review_date"`
}

type User struct {
	ID          int      `bson:"_id" json:"_id"`
	FirstName   string   `bson:"first_name" json:"first_name"`
	LastName    string   `bson:"last_name" json:"last_name"`
	Job         string   `bson:"job" json:"job"`
	YearOfBirth int      `bson:"year_of_birth" json:"year_of_birth"`
	Reviews     []Review `bson:"reviews" json:"reviews"`
}

const (
	UserEntity = "user"
)

// Review book_ids are not checked against the books collection; dangling
// references are tolerated on the read side instead.
func (u *User) Validate() error {
	if u.FirstName == "" {
		return fmt.Errorf("missing or invalid field: first_name")
	}
	if u.LastName == "" {
		return fmt.Errorf("missing or invalid field: last_name")
	}
	return nil
}
