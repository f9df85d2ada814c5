package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Ruisth/Library/internal/constants"
	"github.com/Ruisth/Library/internal/models"
	"github.com/Ruisth/Library/internal/sequence"
	"github.com/Ruisth/Library/internal/utils"
)

type CommentHandler struct {
	CommentCollection *mongo.Collection
	UserCollection    *mongo.Collection
	BookCollection    *mongo.Collection
	Allocator         *sequence.Allocator
	AuditLogger       utils.Logger
}

// POST /comments
//
// The referenced user and book must exist at creation time. That is the
// only moment the references are checked; later deletions leave the
// comment in place.
func (h *CommentHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var comment models.Comment
	if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
		utils.JSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := comment.Validate(); err != nil {
		utils.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userCount, err := h.UserCollection.CountDocuments(ctx, bson.M{"_id": comment.UserID})
	if err != nil {
		utils.JSONError(w, "Failed to verify user", http.StatusInternalServerError)
		return
	}
	if userCount == 0 {
		utils.JSONError(w, "User not found", http.StatusNotFound)
		return
	}

	bookCount, err := h.BookCollection.CountDocuments(ctx, bson.M{"_id": comment.BookID})
	if err != nil {
		utils.JSONError(w, "Failed to verify book", http.StatusInternalServerError)
		return
	}
	if bookCount == 0 {
		utils.JSONError(w, "Book not found", http.StatusNotFound)
		return
	}

	id, err := h.Allocator.Next(ctx, h.CommentCollection)
	if err != nil {
		utils.JSONError(w, "Failed to assign id", http.StatusInternalServerError)
		return
	}

	comment.ID = id
	comment.Date = time.Now()

	if _, err := h.CommentCollection.InsertOne(ctx, comment); err != nil {
		utils.JSONError(w, "Insert failed", http.StatusInternalServerError)
		return
	}

	h.AuditLogger.Log(ctx, models.CommentEntity, constants.Create, comment.ID)

	utils.JSONResponse(w, http.StatusCreated, map[string]any{
		"message": "Comment added",
		"comment": comment,
	})
}

// DELETE /comments/{id}
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := intVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.CommentCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		utils.JSONError(w, "Delete failed", http.StatusInternalServerError)
		return
	}
	if result.DeletedCount == 0 {
		utils.JSONError(w, "Comment not found", http.StatusNotFound)
		return
	}

	h.AuditLogger.Log(ctx, models.CommentEntity, constants.Delete, id)

	json.NewEncoder(w).Encode(map[string]string{"message": "Comment deleted"})
}
