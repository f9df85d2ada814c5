// Package aggregate centralizes the derived review/comment statistics so
// that every endpoint variant shares one pipeline per statistic.
package aggregate

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Ruisth/Library/internal/models"
)

// Score is the review summary for a single book. Average is nil when the
// book has no reviews at all.
type Score struct {
	Average *float64 `bson:"averageScore" json:"averageScore"`
	Total   int64    `bson:"totalReviews" json:"totalReviews"`
}

// RatedBook pairs a full book document with its review statistics.
type RatedBook struct {
	Book         models.Book `bson:"book" json:"book"`
	AverageScore float64     `bson:"averageScore" json:"averageScore"`
	TotalReviews int64       `bson:"totalReviews" json:"totalReviews"`
}

// CommentedBook pairs a book with its comment count.
type CommentedBook struct {
	Book          models.Book `bson:"book" json:"book"`
	TotalComments int64       `bson:"totalComments" json:"totalComments"`
}

// JobReviews is the review total for one reviewer job.
type JobReviews struct {
	Job          string `bson:"job" json:"job"`
	TotalReviews int64  `bson:"totalReviews" json:"totalReviews"`
}

// FiveStarBook pairs a book with the number of five-star reviews it got.
type FiveStarBook struct {
	Book            models.Book `bson:"book" json:"book"`
	FiveStarReviews int64       `bson:"fiveStarReviews" json:"fiveStarReviews"`
}

// SortDirection maps an order parameter to a Mongo sort value.
func SortDirection(order string) (int, error) {
	switch order {
	case "asc":
		return 1, nil
	case "desc":
		return -1, nil
	default:
		return 0, fmt.Errorf("invalid order: %s", order)
	}
}

// AverageScore computes the mean score and review total for one book across
// every user's reviews array. Zero matching reviews yields a nil average,
// never a division by zero.
func AverageScore(ctx context.Context, users *mongo.Collection, bookID int) (Score, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$reviews"}},
		{{Key: "$match", Value: bson.M{"reviews.book_id": bookID}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$reviews.book_id",
			"averageScore": bson.M{"$avg": "$reviews.score"},
			"totalReviews": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := users.Aggregate(ctx, pipeline)
	if err != nil {
		return Score{}, err
	}
	defer cursor.Close(ctx)

	var results []Score
	if err := cursor.All(ctx, &results); err != nil {
		return Score{}, err
	}
	if len(results) == 0 {
		return Score{}, nil
	}
	return results[0], nil
}

// BooksByAverageScore returns the limit best-rated books, mean score
// descending, each joined to its full book document. Review entries whose
// book no longer exists are dropped by the lookup unwind.
func BooksByAverageScore(ctx context.Context, users, books *mongo.Collection, limit int) ([]RatedBook, error) {
	pipeline := append(scoreByBookPipeline(books),
		bson.D{{Key: "$sort", Value: bson.D{{Key: "averageScore", Value: -1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	)
	return runRatedBooks(ctx, users, pipeline)
}

// BooksByTotalReviews ranks every reviewed book by its review count.
// direction comes from SortDirection. The pipeline is built from the
// users' reviews arrays, so a book nobody has reviewed never appears,
// not even with a zero count.
func BooksByTotalReviews(ctx context.Context, users, books *mongo.Collection, direction int) ([]RatedBook, error) {
	pipeline := append(scoreByBookPipeline(books),
		bson.D{{Key: "$sort", Value: bson.D{{Key: "totalReviews", Value: direction}}}},
	)
	return runRatedBooks(ctx, users, pipeline)
}

// scoreByBookPipeline groups all reviews by book and joins the book
// documents. Shared by the average-score and total-reviews rankings.
func scoreByBookPipeline(books *mongo.Collection) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$reviews"}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$reviews.book_id",
			"averageScore": bson.M{"$avg": "$reviews.score"},
			"totalReviews": bson.M{"$sum": 1},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         books.Name(),
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "book",
		}}},
		{{Key: "$unwind", Value: "$book"}},
	}
}

func runRatedBooks(ctx context.Context, users *mongo.Collection, pipeline mongo.Pipeline) ([]RatedBook, error) {
	cursor, err := users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []RatedBook
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// ReviewsByJob groups every review by the reviewing user's job, most
// reviews first. Relative order of tied jobs is engine order.
func ReviewsByJob(ctx context.Context, users *mongo.Collection) ([]JobReviews, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$reviews"}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$job",
			"totalReviews": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalReviews", Value: -1}}}},
		{{Key: "$project", Value: bson.M{
			"_id":          0,
			"job":          "$_id",
			"totalReviews": 1,
		}}},
	}

	cursor, err := users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []JobReviews
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// CommentCounts lists the books that have at least one comment, most
// commented first.
func CommentCounts(ctx context.Context, comments, books *mongo.Collection) ([]CommentedBook, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":           "$book_id",
			"totalComments": bson.M{"$sum": 1},
		}}},
		{{Key: "$match", Value: bson.M{"totalComments": bson.M{"$gt": 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalComments", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         books.Name(),
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "book",
		}}},
		{{Key: "$unwind", Value: "$book"}},
	}

	cursor, err := comments.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []CommentedBook
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// FiveStarBooks lists the books with one or more five-star reviews along
// with how many they received.
func FiveStarBooks(ctx context.Context, users, books *mongo.Collection) ([]FiveStarBook, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$reviews"}},
		{{Key: "$match", Value: bson.M{"reviews.score": 5}}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$reviews.book_id",
			"fiveStarReviews": bson.M{"$sum": 1},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         books.Name(),
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "book",
		}}},
		{{Key: "$unwind", Value: "$book"}},
	}

	cursor, err := users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []FiveStarBook
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// TopReviews returns a user's n best reviews, score descending. A stable
// sort keeps the stored order among equal scores. Fewer than n reviews
// returns them all.
func TopReviews(reviews []models.Review, n int) []models.Review {
	top := make([]models.Review, len(reviews))
	copy(top, reviews)

	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Score > top[j].Score
	})

	if len(top) > n {
		top = top[:n]
	}
	return top
}

// MissingBookIDs reports which of the wanted ids have no matching book.
// Used to surface dangling review references instead of failing the
// request.
func MissingBookIDs(wanted []int, found []models.Book) []int {
	have := make(map[int]bool, len(found))
	for _, b := range found {
		have[b.ID] = true
	}

	var missing []int
	for _, id := range wanted {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
