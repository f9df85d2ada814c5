package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ruisth/Library/internal/constants"
	"github.com/Ruisth/Library/internal/models"
	"github.com/Ruisth/Library/internal/pagination"
	"github.com/Ruisth/Library/internal/utils"
)

// Radius MongoDB assumes for $centerSphere radian conversions, in meters.
const earthRadiusMeters = 6378100.0

// A route query runs one $centerSphere find per vertex, so the vertex
// count bounds the work per request.
const maxRouteVertices = 100

type LivrariaHandler struct {
	LivrariaCollection *mongo.Collection
	BookCollection     *mongo.Collection
	AuditLogger        utils.Logger
	Config             struct {
		DefaultPageSize   int
		MaxPageSize       int
		MaxDistanceMeters float64
	}
}

func NewLivrariaHandler(livrariaColl, bookColl *mongo.Collection, logger utils.Logger, defaultPageSize, maxPageSize int, maxDistanceMeters float64) *LivrariaHandler {
	h := &LivrariaHandler{
		LivrariaCollection: livrariaColl,
		BookCollection:     bookColl,
		AuditLogger:        logger,
	}
	h.Config.DefaultPageSize = defaultPageSize
	h.Config.MaxPageSize = maxPageSize
	h.Config.MaxDistanceMeters = maxDistanceMeters
	return h
}

// GET /livrarias
func (h *LivrariaHandler) ListLivrarias(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	params := pagination.ParseParams(r.URL.Query(), h.Config.DefaultPageSize, h.Config.MaxPageSize)

	total, err := h.LivrariaCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		utils.JSONError(w, "Failed to count livrarias", http.StatusInternalServerError)
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(params.Skip()).
		SetLimit(params.Limit())

	cursor, err := h.LivrariaCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		utils.JSONError(w, "Failed to fetch livrarias", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	livrarias := []models.Livraria{}
	if err = cursor.All(ctx, &livrarias); err != nil {
		utils.JSONError(w, "Error decoding livrarias", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(pagination.NewPage(livrarias, params, total))
}

// POST /livrarias
//
// Livraria ids come from the caller; only the book references get
// validated and de-duplicated.
func (h *LivrariaHandler) AddLivraria(w http.ResponseWriter, r *http.Request) {
	var livraria models.Livraria
	if err := json.NewDecoder(r.Body).Decode(&livraria); err != nil {
		utils.JSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := livraria.Validate(); err != nil {
		utils.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	livraria.DedupeBooks()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := h.LivrariaCollection.InsertOne(ctx, livraria); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.JSONError(w, "Livraria already exists", http.StatusBadRequest)
			return
		}
		utils.JSONError(w, "Insert failed", http.StatusInternalServerError)
		return
	}

	h.AuditLogger.Log(ctx, models.LivrariaEntity, constants.Create, livraria.ID)

	utils.JSONResponse(w, http.StatusCreated, map[string]any{
		"message":  "Livraria inserted",
		"livraria": livraria,
	})
}

// GET /livrarias/{id}
func (h *LivrariaHandler) GetLivraria(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var livraria models.Livraria
	if err := h.LivrariaCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&livraria); err != nil {
		utils.JSONError(w, "Livraria not found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(livraria)
}

// DELETE /livrarias/{id}
func (h *LivrariaHandler) DeleteLivraria(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.LivrariaCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		utils.JSONError(w, "Delete failed", http.StatusInternalServerError)
		return
	}
	if result.DeletedCount == 0 {
		utils.JSONError(w, "Livraria not found", http.StatusNotFound)
		return
	}

	h.AuditLogger.Log(ctx, models.LivrariaEntity, constants.Delete, id)

	json.NewEncoder(w).Encode(map[string]string{"message": "Livraria deleted"})
}

// POST /livrarias/{id}/books
//
// Adds book references to a livraria. The stored books are a set keyed by
// _id, and every reference must resolve to an existing book.
func (h *LivrariaHandler) AddBooks(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	refs, err := decodeOneOrMany[models.BookRef](r.Body)
	if err != nil {
		utils.JSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if len(refs) == 0 {
		utils.JSONError(w, "Empty batch", http.StatusBadRequest)
		return
	}

	ids := make([]int, len(refs))
	for i, ref := range refs {
		if ref.ID <= 0 {
			utils.JSONError(w, "Book reference without a numeric _id", http.StatusBadRequest)
			return
		}
		ids[i] = ref.ID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	known, err := h.BookCollection.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		utils.JSONError(w, "Failed to verify books", http.StatusInternalServerError)
		return
	}
	if int(known) != len(uniqueInts(ids)) {
		utils.JSONError(w, "One or more books do not exist", http.StatusBadRequest)
		return
	}

	var livraria models.Livraria
	if err := h.LivrariaCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&livraria); err != nil {
		utils.JSONError(w, "Livraria not found", http.StatusNotFound)
		return
	}

	// Dedupe by _id: $addToSet compares whole documents, so a reference
	// carrying a stale title would land next to the stored one. Drop refs
	// whose _id is already stored, and repeats within the request itself.
	present := make(map[int]bool, len(livraria.Books))
	for _, ref := range livraria.Books {
		present[ref.ID] = true
	}
	newRefs := []models.BookRef{}
	for _, ref := range refs {
		if present[ref.ID] {
			continue
		}
		present[ref.ID] = true
		newRefs = append(newRefs, ref)
	}

	if len(newRefs) > 0 {
		_, err = h.LivrariaCollection.UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$push": bson.M{"books": bson.M{"$each": newRefs}}},
		)
		if err != nil {
			utils.JSONError(w, "Update failed", http.StatusInternalServerError)
			return
		}

		h.AuditLogger.Log(ctx, models.LivrariaEntity, constants.AddBooks, ids)
	}

	json.NewEncoder(w).Encode(map[string]any{
		"message":    "Books added",
		"addedCount": len(newRefs),
	})
}

// GET /livrarias/near/{long}/{lat}
func (h *LivrariaHandler) NearbyLivrarias(w http.ResponseWriter, r *http.Request) {
	long, lat, err := coordinates(r)
	if err != nil {
		utils.JSONError(w, "Invalid coordinates", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{
		"geometry": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        models.GeometryPoint,
					"coordinates": []float64{long, lat},
				},
				"$maxDistance": h.Config.MaxDistanceMeters,
			},
		},
	}

	cursor, err := h.LivrariaCollection.Find(ctx, filter)
	if err != nil {
		utils.JSONError(w, "Failed to fetch nearby livrarias", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	livrarias := []models.Livraria{}
	if err = cursor.All(ctx, &livrarias); err != nil {
		utils.JSONError(w, "Error decoding livrarias", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(livrarias)
}

type routeRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
	MaxDistance float64     `json:"maxDistance"`
}

// POST /livrarias/route
//
// Livrarias near any vertex of a route. $near cannot run once per vertex
// in a single query, so each point is queried with $centerSphere and the
// results are unioned, first hit wins.
func (h *LivrariaHandler) LivrariasAlongRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if len(req.Coordinates) == 0 {
		utils.JSONError(w, "Route has no coordinates", http.StatusBadRequest)
		return
	}
	if len(req.Coordinates) > maxRouteVertices {
		utils.JSONError(w, "Route exceeds the vertex limit", http.StatusBadRequest)
		return
	}
	for _, point := range req.Coordinates {
		if len(point) != 2 {
			utils.JSONError(w, "Each coordinate must be [longitude, latitude]", http.StatusBadRequest)
			return
		}
	}

	maxDistance := req.MaxDistance
	if maxDistance <= 0 {
		maxDistance = h.Config.MaxDistanceMeters
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seen := map[string]bool{}
	results := []models.Livraria{}

	for _, point := range req.Coordinates {
		filter := bson.M{
			"geometry": bson.M{
				"$geoWithin": bson.M{
					"$centerSphere": []any{
						[]float64{point[0], point[1]},
						maxDistance / earthRadiusMeters,
					},
				},
			},
		}

		cursor, err := h.LivrariaCollection.Find(ctx, filter)
		if err != nil {
			utils.JSONError(w, "Failed to fetch livrarias along route", http.StatusInternalServerError)
			return
		}

		batch := []models.Livraria{}
		if err = cursor.All(ctx, &batch); err != nil {
			utils.JSONError(w, "Error decoding livrarias", http.StatusInternalServerError)
			return
		}

		for _, livraria := range batch {
			if seen[livraria.ID] {
				continue
			}
			seen[livraria.ID] = true
			results = append(results, livraria)
		}
	}

	json.NewEncoder(w).Encode(results)
}

// GET /livrarias/count_nearby/{long}/{lat}
//
// $near is not allowed in count queries, so the count uses $geoWithin with
// the same radius.
func (h *LivrariaHandler) CountNearby(w http.ResponseWriter, r *http.Request) {
	long, lat, err := coordinates(r)
	if err != nil {
		utils.JSONError(w, "Invalid coordinates", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{
		"geometry": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": []any{
					[]float64{long, lat},
					h.Config.MaxDistanceMeters / earthRadiusMeters,
				},
			},
		},
	}

	count, err := h.LivrariaCollection.CountDocuments(ctx, filter)
	if err != nil {
		utils.JSONError(w, "Failed to count nearby livrarias", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{"count": count})
}

// GET /livrarias/user_fair/{long}/{lat}
//
// Whether the given point falls inside the book fair polygon(s).
func (h *LivrariaHandler) UserInsideFair(w http.ResponseWriter, r *http.Request) {
	long, lat, err := coordinates(r)
	if err != nil {
		utils.JSONError(w, "Invalid coordinates", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{
		"geometry.type": models.GeometryPolygon,
		"geometry": bson.M{
			"$geoIntersects": bson.M{
				"$geometry": bson.M{
					"type":        models.GeometryPoint,
					"coordinates": []float64{long, lat},
				},
			},
		},
	}

	cursor, err := h.LivrariaCollection.Find(ctx, filter)
	if err != nil {
		utils.JSONError(w, "Failed to check fair boundaries", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	fairs := []models.Livraria{}
	if err = cursor.All(ctx, &fairs); err != nil {
		utils.JSONError(w, "Error decoding livrarias", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"inside":    len(fairs) > 0,
		"livrarias": fairs,
	})
}

func coordinates(r *http.Request) (long, lat float64, err error) {
	long, err = floatVar(r, "long")
	if err != nil {
		return 0, 0, err
	}
	lat, err = floatVar(r, "lat")
	if err != nil {
		return 0, 0, err
	}
	return long, lat, nil
}

func uniqueInts(values []int) []int {
	seen := make(map[int]bool, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
