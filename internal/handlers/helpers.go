package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// decodeOneOrMany accepts either a single JSON object or a JSON array of
// objects, normalizing both into a slice. Creation endpoints take one or
// many records in the same request body.
func decodeOneOrMany[T any](body io.Reader) ([]T, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var many []T
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, err
		}
		return many, nil
	}

	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

// intVar parses an integer path variable.
func intVar(r *http.Request, name string) (int, error) {
	return strconv.Atoi(mux.Vars(r)[name])
}

// floatVar parses a float path variable (coordinates).
func floatVar(r *http.Request, name string) (float64, error) {
	return strconv.ParseFloat(mux.Vars(r)[name], 64)
}

// mergeFields keeps only the fields a partial update actually sets: nil,
// empty-string, zero-number, false and empty-array values leave the stored
// value untouched. The _id never changes through an update.
func mergeFields(update map[string]any) map[string]any {
	out := make(map[string]any, len(update))
	for key, value := range update {
		if key == "_id" {
			continue
		}
		switch v := value.(type) {
		case nil:
			continue
		case string:
			if v == "" {
				continue
			}
		case float64:
			if v == 0 {
				continue
			}
		case bool:
			if !v {
				continue
			}
		case []any:
			if len(v) == 0 {
				continue
			}
		}
		out[key] = value
	}
	return out
}
