package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JohanU89-coder/radius-api/internal/models"
)

// writeJSON marshals v and writes it with the given status code. If
// marshaling fails a 500 error envelope is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes the {"error": message} envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeSuccess writes the {"success": message} envelope.
func writeSuccess(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"success": message})
}

// statusFor maps a service error onto the response status and message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidAccount):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, models.ErrAccountExists):
		return http.StatusConflict, "account already exists"
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusInternalServerError, "could not connect to the database"
	default:
		return http.StatusInternalServerError, "database error: " + err.Error()
	}
}

func validationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return err.Field() + " must be a valid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// validationError flattens validator errors into one message.
func validationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "validation failed"
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, validationMessage(fe))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
