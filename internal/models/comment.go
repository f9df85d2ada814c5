package models

import (
	"fmt"
	"time"
)

type Comment struct {
	ID      int       `bson:"_id" json:"_id"`
	UserID  int       `bson:"user_id" json:"user_id"`
	BookID  int       `bson:"book_id" json:"book_id"`
	Comment string    `bson:"comment" json:"comment"`
	Date    time.Time `bson:"date" json:"date"`
}

const (
	CommentEntity = "comment"
)

func (c *Comment) Validate() error {
	if c.UserID <= 0 {
		return fmt.Errorf("missing or invalid field: user_id")
	}
	if c.BookID <= 0 {
		return fmt.Errorf("missing or invalid field: book_id")
	}
	if c.Comment == "" {
		return fmt.Errorf("missing or invalid field: comment")
	}
	return nil
}
