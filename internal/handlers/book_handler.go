package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ruisth/Library/internal/aggregate"
	"github.com/Ruisth/Library/internal/constants"
	"github.com/Ruisth/Library/internal/models"
	"github.com/Ruisth/Library/internal/pagination"
	"github.com/Ruisth/Library/internal/sequence"
	"github.com/Ruisth/Library/internal/utils"
)

type BookHandler struct {
	BookCollection    *mongo.Collection
	UserCollection    *mongo.Collection
	CommentCollection *mongo.Collection
	Allocator         *sequence.Allocator
	AuditLogger       utils.Logger
	Config            struct {
		DefaultPageSize int
		MaxPageSize     int
	}
}

func NewBookHandler(bookColl, userColl, commentColl *mongo.Collection, alloc *sequence.Allocator, logger utils.Logger, defaultPageSize, maxPageSize int) *BookHandler {
	h := &BookHandler{
		BookCollection:    bookColl,
		UserCollection:    userColl,
		CommentCollection: commentColl,
		Allocator:         alloc,
		AuditLogger:       logger,
	}
	h.Config.DefaultPageSize = defaultPageSize
	h.Config.MaxPageSize = maxPageSize
	return h
}

// GET /books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	params := pagination.ParseParams(r.URL.Query(), h.Config.DefaultPageSize, h.Config.MaxPageSize)

	total, err := h.BookCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		utils.JSONError(w, "Failed to count books", http.StatusInternalServerError)
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(params.Skip()).
		SetLimit(params.Limit())

	cursor, err := h.BookCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		utils.JSONError(w, "Failed to fetch books", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	books := []models.Book{}
	if err = cursor.All(ctx, &books); err != nil {
		utils.JSONError(w, "Error decoding books", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(pagination.NewPage(books, params, total))
}

// POST /books
//
// Accepts one book or an array of books. The whole batch is validated
// before any id is reserved: one bad record rejects everything.
func (h *BookHandler) AddBooks(w http.ResponseWriter, r *http.Request) {
	books, err := decodeOneOrMany[models.Book](r.Body)
	if err != nil {
		utils.JSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if len(books) == 0 {
		utils.JSONError(w, "Empty batch", http.StatusBadRequest)
		return
	}

	for _, book := range books {
		if err := book.Validate(); err != nil {
			utils.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	base, err := h.Allocator.Reserve(ctx, h.BookCollection, len(books))
	if err != nil {
		utils.JSONError(w, "Failed to assign ids", http.StatusInternalServerError)
		return
	}

	docs := make([]any, len(books))
	ids := make([]int, len(books))
	for i := range books {
		books[i].ID = base + i
		docs[i] = books[i]
		ids[i] = books[i].ID
	}

	if _, err := h.BookCollection.InsertMany(ctx, docs); err != nil {
		utils.JSONError(w, "Insert failed", http.StatusInternalServerError)
		return
	}

	h.AuditLogger.Log(ctx, models.BookEntity, constants.Create, ids)

	utils.JSONResponse(w, http.StatusCreated, map[string]any{
		"message":       "Books inserted",
		"insertedCount": len(books),
		"insertedIds":   ids,
	})
}

type bookDetail struct {
	models.Book
	AverageScore *float64         `json:"averageScore"`
	TotalReviews int64            `json:"totalReviews"`
	Comments     []models.Comment `json:"comments"`
}

// GET /books/id/{id}
//
// One book plus its average score, review total and every comment on it.
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := intVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid book ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var book models.Book
	if err := h.BookCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&book); err != nil {
		utils.JSONError(w, "Book not found", http.StatusNotFound)
		return
	}

	score, err := aggregate.AverageScore(ctx, h.UserCollection, id)
	if err != nil {
		utils.JSONError(w, "Failed to compute score", http.StatusInternalServerError)
		return
	}

	cursor, err := h.CommentCollection.Find(ctx, bson.M{"book_id": id})
	if err != nil {
		utils.JSONError(w, "Failed to fetch comments", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err = cursor.All(ctx, &comments); err != nil {
		utils.JSONError(w, "Error decoding comments", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(bookDetail{
		Book:         book,
		AverageScore: score.Average,
		TotalReviews: score.Total,
		Comments:     comments,
	})
}

// PUT /books/{id}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := intVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid book ID", http.StatusBadRequest)
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

	result, err := h.BookCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		utils.JSONError(w, "Update failed", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		utils.JSONError(w, "Book not found", http.StatusNotFound)
		return
	}

	h.AuditLogger.Log(ctx, models.BookEntity, constants.Update, fields)

	json.NewEncoder(w).Encode(map[string]any{
		"message":       "Book updated",
		"modifiedCount": result.ModifiedCount,
	})
}

// DELETE /books/{id}
//
// Comments and review references to the book survive; readers tolerate the
// dangling ids.
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := intVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid book ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.BookCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		utils.JSONError(w, "Delete failed", http.StatusInternalServerError)
		return
	}
	if result.DeletedCount == 0 {
		utils.JSONError(w, "Book not found", http.StatusNotFound)
		return
	}

	h.AuditLogger.Log(ctx, models.BookEntity, constants.Delete, id)

	json.NewEncoder(w).Encode(map[string]string{"message": "Book deleted"})
}

// GET /books/top/{limit}
func (h *BookHandler) TopBooks(w http.ResponseWriter, r *http.Request) {
	limit, err := intVar(r, "limit")
	if err != nil || limit < 1 {
		utils.JSONError(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := aggregate.BooksByAverageScore(ctx, h.UserCollection, h.BookCollection, limit)
	if err != nil {
		utils.JSONError(w, "Failed to rank books", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(results)
}

// GET /books/ratings/{order}
func (h *BookHandler) BooksByRatings(w http.ResponseWriter, r *http.Request) {
	direction, err := aggregate.SortDirection(mux.Vars(r)["order"])
	if err != nil {
		utils.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := aggregate.BooksByTotalReviews(ctx, h.UserCollection, h.BookCollection, direction)
	if err != nil {
		utils.JSONError(w, "Failed to rank books", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(results)
}

// GET /books/star
func (h *BookHandler) FiveStarBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := aggregate.FiveStarBooks(ctx, h.UserCollection, h.BookCollection)
	if err != nil {
		utils.JSONError(w, "Failed to fetch five-star books", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(results)
}

// GET /books/year/{year}
//
// Also served as GET /books/{year} for compatibility with an earlier
// revision of the API.
func (h *BookHandler) BooksByYear(w http.ResponseWriter, r *http.Request) {
	year, err := intVar(r, "year")
	if err != nil || year < 1 {
		utils.JSONError(w, "Invalid year", http.StatusBadRequest)
		return
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := h.BookCollection.Find(ctx, bson.M{
		"publishedDate": bson.M{"$gte": start, "$lt": end},
	})
	if err != nil {
		utils.JSONError(w, "Failed to fetch books", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	books := []models.Book{}
	if err = cursor.All(ctx, &books); err != nil {
		utils.JSONError(w, "Error decoding books", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(books)
}

// GET /books/comments
func (h *BookHandler) BooksWithComments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := aggregate.CommentCounts(ctx, h.CommentCollection, h.BookCollection)
	if err != nil {
		utils.JSONError(w, "Failed to fetch commented books", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(results)
}

// GET /books/job
func (h *BookHandler) ReviewsByJob(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := aggregate.ReviewsByJob(ctx, h.UserCollection)
	if err != nil {
		utils.JSONError(w, "Failed to group reviews", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(results)
}

// GET /books/filter?price=&category=&author=
//
// Category and author match case-insensitively; price matches exactly.
func (h *BookHandler) FilterBooks(w http.ResponseWriter, r *http.Request) {
	query := bson.M{}

	if raw := r.URL.Query().Get("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			utils.JSONError(w, "Invalid price", http.StatusBadRequest)
			return
		}
		query["price"] = price
	}

	if category := r.URL.Query().Get("category"); category != "" {
		query["categories"] = caseInsensitive(category)
	}

	if author := r.URL.Query().Get("author"); author != "" {
		query["authors"] = caseInsensitive(author)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := h.BookCollection.Find(ctx, query)
	if err != nil {
		utils.JSONError(w, "Failed to filter books", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	books := []models.Book{}
	if err = cursor.All(ctx, &books); err != nil {
		utils.JSONError(w, "Error decoding books", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(books)
}

// GET /books/averageScore/{id}
func (h *BookHandler) BookAverageScore(w http.ResponseWriter, r *http.Request) {
	id, err := intVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid book ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := h.BookCollection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		utils.JSONError(w, "Failed to fetch book", http.StatusInternalServerError)
		return
	}
	if count == 0 {
		utils.JSONError(w, "Book not found", http.StatusNotFound)
		return
	}

	score, err := aggregate.AverageScore(ctx, h.UserCollection, id)
	if err != nil {
		utils.JSONError(w, "Failed to compute score", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"book_id":      id,
		"averageScore": score.Average,
		"totalReviews": score.Total,
	})
}

// caseInsensitive builds an anchored case-insensitive exact match. Matching
// against an array field matches any element.
func caseInsensitive(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}
