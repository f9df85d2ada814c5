package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ruisth/Library/internal/aggregate"
	"github.com/Ruisth/Library/internal/constants"
	"github.com/Ruisth/Library/internal/models"
	"github.com/Ruisth/Library/internal/pagination"
	"github.com/Ruisth/Library/internal/sequence"
	"github.com/Ruisth/Library/internal/utils"
)

const topBooksPerUser = 3

type UserHandler struct {
	UserCollection *mongo.Collection
	BookCollection *mongo.Collection
	Allocator      *sequence.Allocator
	AuditLogger    utils.Logger
	Config         struct {
		DefaultPageSize int
		MaxPageSize     int
	}
}

func NewUserHandler(userColl, bookColl *mongo.Collection, alloc *sequence.Allocator, logger utils.Logger, defaultPageSize, maxPageSize int) *UserHandler {
	h := &UserHandler{
		UserCollection: userColl,
		BookCollection: bookColl,
		Allocator:      alloc,
		AuditLogger:    logger,
	}
	h.Config.DefaultPageSize = defaultPageSize
	h.Config.MaxPageSize = maxPageSize
	return h
}

// GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	params := pagination.ParseParams(r.URL.Query(), h.Config.DefaultPageSize, h.Config.MaxPageSize)

	total, err := h.UserCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		utils.JSONError(w, "Failed to count users", http.StatusInternalServerError)
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(params.Skip()).
		SetLimit(params.Limit())

	cursor, err := h.UserCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		utils.JSONError(w, "Failed to fetch users", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err = cursor.All(ctx, &users); err != nil {
		utils.JSONError(w, "Error decoding users", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(pagination.NewPage(users, params, total))
}

// GET /users/check
//
// Last inserted user. Kept from an earlier revision where it was used for
// manual verification of the id sequence.
func (h *UserHandler) LastUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})

	var user models.User
	if err := h.UserCollection.FindOne(ctx, bson.M{}, opts).Decode(&user); err != nil {
		utils.JSONError(w, "User not found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(user)
}

// POST /users
func (h *UserHandler) AddUsers(w http.ResponseWriter, r *http.Request) {
	users, err := decodeOneOrMany[models.User](r.Body)
	if err != nil {
		utils.JSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if len(users) == 0 {
		utils.JSONError(w, "Empty batch", http.StatusBadRequest)
		return
	}

	for _, user := range users {
		if err := user.Validate(); err != nil {
			utils.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	base, err := h.Allocator.Reserve(ctx, h.UserCollection, len(users))
	if err != nil {
		utils.JSONError(w, "Failed to assign ids", http.StatusInternalServerError)
		return
	}

	docs := make([]any, len(users))
	ids := make([]int, len(users))
	for i := range users {
		users[i].ID = base + i
		docs[i] = users[i]
		ids[i] = users[i].ID
	}

	if _, err := h.UserCollection.InsertMany(ctx, docs); err != nil {
		utils.JSONError(w, "Insert failed", http.StatusInternalServerError)
		return
	}

	h.AuditLogger.Log(ctx, models.UserEntity, constants.Create, ids)

	utils.JSONResponse(w, http.StatusCreated, map[string]any{
		"message":       "Users inserted",
		"insertedCount": len(users),
		"insertedIds":   ids,
	})
}

type userDetail struct {
	models.User
	TopBooks []models.Book `json:"topBooks"`
	Message  string        `json:"message,omitempty"`
}

// GET /users/{id}
//
// The user plus their three best-scored books. A review pointing at a
// deleted book is skipped and reported in the message instead of failing
// the whole request.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := intVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var user models.User
	if err := h.UserCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		utils.JSONError(w, "User not found", http.StatusNotFound)
		return
	}

	topReviews := aggregate.TopReviews(user.Reviews, topBooksPerUser)

	wanted := make([]int, len(topReviews))
	for i, review := range topReviews {
		wanted[i] = review.BookID
	}

	found := []models.Book{}
	if len(wanted) > 0 {
		cursor, err := h.BookCollection.Find(ctx, bson.M{"_id": bson.M{"$in": wanted}})
		if err != nil {
			utils.JSONError(w, "Failed to fetch top books", http.StatusInternalServerError)
			return
		}
		defer cursor.Close(ctx)

		if err = cursor.All(ctx, &found); err != nil {
			utils.JSONError(w, "Error decoding books", http.StatusInternalServerError)
			return
		}
	}

	detail := userDetail{
		User:     user,
		TopBooks: orderByIDs(found, wanted),
	}

	var notes []string
	if len(user.Reviews) < topBooksPerUser {
		notes = append(notes, fmt.Sprintf("user has only %d review(s)", len(user.Reviews)))
	}
	if missing := aggregate.MissingBookIDs(wanted, found); len(missing) > 0 {
		notes = append(notes, fmt.Sprintf("book(s) no longer available: %v", missing))
	}
	detail.Message = strings.Join(notes, "; ")

	json.NewEncoder(w).Encode(detail)
}

// PUT /users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := intVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var updateData map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		utils.JSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	fields := mergeFields(updateData)
	if len(fields) == 0 {
		utils.JSONError(w, "No update fields provided", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.UserCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		utils.JSONError(w, "Update failed", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		utils.JSONError(w, "User not found", http.StatusNotFound)
		return
	}

	h.AuditLogger.Log(ctx, models.UserEntity, constants.Update, fields)

	json.NewEncoder(w).Encode(map[string]any{
		"message":       "User updated",
		"modifiedCount": result.ModifiedCount,
	})
}

// DELETE /users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := intVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.UserCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		utils.JSONError(w, "Delete failed", http.StatusInternalServerError)
		return
	}
	if result.DeletedCount == 0 {
		utils.JSONError(w, "User not found", http.StatusNotFound)
		return
	}

	h.AuditLogger.Log(ctx, models.UserEntity, constants.Delete, id)

	json.NewEncoder(w).Encode(map[string]string{"message": "User deleted"})
}

// orderByIDs reorders the fetched books to follow the review ranking rather
// than the engine's $in result order. Missing ids are simply skipped.
func orderByIDs(books []models.Book, ids []int) []models.Book {
	byID := make(map[int]models.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	ordered := make([]models.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
		}
	}
	return ordered
}
