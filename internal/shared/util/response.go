package util

import (
	"encoding/json"
	"net/http"

	"rideshare/internal/shared/apperrors"
)

func ResponseInJson(w http.ResponseWriter, statusCode int, object interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(object)
}

// ErrResponseInJson writes err with the status its kind maps to.
func ErrResponseInJson(w http.ResponseWriter, err error) {
	WriteJSONError(w, err.Error(), apperrors.StatusCode(err))
}

func WriteJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
