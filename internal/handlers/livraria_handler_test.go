package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Ruisth/Library/internal/handlers"
	"github.com/Ruisth/Library/internal/models"
)

func livrariaRouter(h *handlers.LivrariaHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/livrarias", h.AddLivraria).Methods("POST")
	router.HandleFunc("/livrarias/route", h.LivrariasAlongRoute).Methods("POST")
	router.HandleFunc("/livrarias/near/{long}/{lat}", h.NearbyLivrarias).Methods("GET")
	router.HandleFunc("/livrarias/count_nearby/{long}/{lat}", h.CountNearby).Methods("GET")
	router.HandleFunc("/livrarias/user_fair/{long}/{lat}", h.UserInsideFair).Methods("GET")
	router.HandleFunc("/livrarias/{id}/books", h.AddBooks).Methods("POST")
	return router
}

func newLivrariaHandler(mt *mtest.T) *handlers.LivrariaHandler {
	return handlers.NewLivrariaHandler(
		mt.DB.Collection("livrarias"), mt.DB.Collection("books"),
		auditLogger(mt), 20, 100, 1000,
	)
}

func TestLivrariaHandler_AddLivraria_Validation(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing id rejected", func(mt *mtest.T) {
		body, _ := json.Marshal(models.Livraria{
			Books: []models.BookRef{{ID: 1, Title: "A"}},
		})
		req := httptest.NewRequest(http.MethodPost, "/livrarias", bytes.NewReader(body))
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	mt.Run("book reference without numeric id rejected", func(mt *mtest.T) {
		body := []byte(`{"_id": "Bertrand Chiado", "books": [{"title": "Sem ID"}]}`)
		req := httptest.NewRequest(http.MethodPost, "/livrarias", bytes.NewReader(body))
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	mt.Run("duplicate book refs are collapsed before insert", func(mt *mtest.T) {
		mt.AddMockResponses(
			// insert
			mtest.CreateSuccessResponse(),
			// audit log
			mtest.CreateSuccessResponse(),
		)

		body := []byte(`{
			"_id": "FNAC Colombo",
			"books": [
				{"_id": 1, "title": "A"},
				{"_id": 1, "title": "A"},
				{"_id": 2, "title": "B"}
			]
		}`)
		req := httptest.NewRequest(http.MethodPost, "/livrarias", bytes.NewReader(body))
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Result().StatusCode)

		var resp struct {
			Livraria models.Livraria `json:"livraria"`
		}
		assert.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
		assert.Len(t, resp.Livraria.Books, 2)
	})
}

func TestLivrariaHandler_Geospatial_Validation(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("non-numeric coordinates rejected", func(mt *mtest.T) {
		req := httptest.NewRequest(http.MethodGet, "/livrarias/near/west/north", nil)
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	mt.Run("route without coordinates rejected", func(mt *mtest.T) {
		body := []byte(`{"coordinates": []}`)
		req := httptest.NewRequest(http.MethodPost, "/livrarias/route", bytes.NewReader(body))
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	mt.Run("route with too many vertices rejected", func(mt *mtest.T) {
		route := struct {
			Coordinates [][]float64 `json:"coordinates"`
		}{}
		for i := 0; i < 101; i++ {
			route.Coordinates = append(route.Coordinates, []float64{-9.14, 38.71})
		}
		body, _ := json.Marshal(route)

		req := httptest.NewRequest(http.MethodPost, "/livrarias/route", bytes.NewReader(body))
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	mt.Run("route vertex must be a coordinate pair", func(mt *mtest.T) {
		body := []byte(`{"coordinates": [[-9.14, 38.71, 7.0]]}`)
		req := httptest.NewRequest(http.MethodPost, "/livrarias/route", bytes.NewReader(body))
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	mt.Run("route unions results across vertices without duplicates", func(mt *mtest.T) {
		livA := bson.D{{Key: "_id", Value: "A"}, {Key: "books", Value: bson.A{}}}
		livB := bson.D{{Key: "_id", Value: "B"}, {Key: "books", Value: bson.A{}}}

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.livrarias", mtest.FirstBatch, livA),
			mtest.CreateCursorResponse(0, "test.livrarias", mtest.FirstBatch, livA, livB),
		)

		body := []byte(`{"coordinates": [[-9.14, 38.71], [-9.15, 38.72]]}`)
		req := httptest.NewRequest(http.MethodPost, "/livrarias/route", bytes.NewReader(body))
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)

		var resp []models.Livraria
		assert.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
		assert.Len(t, resp, 2)
	})
}

func TestLivrariaHandler_UserInsideFair(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("point outside every polygon", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.livrarias", mtest.FirstBatch))

		req := httptest.NewRequest(http.MethodGet, "/livrarias/user_fair/-9.1556/38.7274", nil)
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)

		var resp struct {
			Inside bool `json:"inside"`
		}
		assert.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
		assert.False(t, resp.Inside)
	})

	mt.Run("point inside the fair polygon", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.livrarias", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "Feira do Livro"},
			{Key: "books", Value: bson.A{}},
		}))

		req := httptest.NewRequest(http.MethodGet, "/livrarias/user_fair/-9.1556/38.7274", nil)
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)

		var resp struct {
			Inside    bool              `json:"inside"`
			Livrarias []models.Livraria `json:"livrarias"`
		}
		assert.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
		assert.True(t, resp.Inside)
		assert.Len(t, resp.Livrarias, 1)
	})
}

func TestLivrariaHandler_AddBooks(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("reference without numeric id rejected", func(mt *mtest.T) {
		body := []byte(`[{"title": "Sem ID"}]`)
		req := httptest.NewRequest(http.MethodPost, "/livrarias/FNAC/books", bytes.NewReader(body))
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	mt.Run("unknown book id rejected", func(mt *mtest.T) {
		mt.AddMockResponses(
			// only one of the two referenced books exists
			mtest.CreateCursorResponse(1, "test.books", mtest.FirstBatch, bson.D{
				{Key: "n", Value: 1},
			}),
		)

		body := []byte(`[{"_id": 1, "title": "A"}, {"_id": 99, "title": "Fantasma"}]`)
		req := httptest.NewRequest(http.MethodPost, "/livrarias/FNAC/books", bytes.NewReader(body))
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	mt.Run("stored id skipped even when the title differs", func(mt *mtest.T) {
		mt.AddMockResponses(
			// book exists
			mtest.CreateCursorResponse(1, "test.books", mtest.FirstBatch, bson.D{
				{Key: "n", Value: 1},
			}),
			// livraria already holds the same _id under another title
			mtest.CreateCursorResponse(0, "test.livrarias", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "FNAC"},
				{Key: "books", Value: bson.A{
					bson.D{{Key: "_id", Value: 1}, {Key: "title", Value: "A"}},
				}},
			}),
		)

		body := []byte(`[{"_id": 1, "title": "B"}]`)
		req := httptest.NewRequest(http.MethodPost, "/livrarias/FNAC/books", bytes.NewReader(body))
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)

		var resp struct {
			AddedCount int `json:"addedCount"`
		}
		assert.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
		assert.Zero(t, resp.AddedCount)
	})

	mt.Run("duplicate ids within one request land once", func(mt *mtest.T) {
		mt.AddMockResponses(
			// both referenced books exist
			mtest.CreateCursorResponse(1, "test.books", mtest.FirstBatch, bson.D{
				{Key: "n", Value: 2},
			}),
			// livraria with an empty book set
			mtest.CreateCursorResponse(0, "test.livrarias", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "FNAC"},
				{Key: "books", Value: bson.A{}},
			}),
			// update
			mtest.CreateSuccessResponse(),
			// audit log
			mtest.CreateSuccessResponse(),
		)

		body := []byte(`[
			{"_id": 1, "title": "A"},
			{"_id": 1, "title": "B"},
			{"_id": 2, "title": "C"}
		]`)
		req := httptest.NewRequest(http.MethodPost, "/livrarias/FNAC/books", bytes.NewReader(body))
		w := httptest.NewRecorder()

		livrariaRouter(newLivrariaHandler(mt)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)

		var resp struct {
			AddedCount int `json:"addedCount"`
		}
		assert.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
		assert.Equal(t, 2, resp.AddedCount)
	})
}
