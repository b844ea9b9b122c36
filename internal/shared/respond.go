// internal/shared/respond.go
package shared

import (
	"encoding/json"
	"errors"
	"net/http"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes the uniform {code, message} error body. Non-coded errors
// are not leaked to clients.
func WriteError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	var e *Error
	if !errors.As(err, &e) {
		e = NewError("INTERNAL", "internal error")
	}
	WriteJSON(w, status, e)
}
