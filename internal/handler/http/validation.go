package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

type ValidationErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

func formatValidationErrors(errs validator.ValidationErrors) []string {
	details := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details = append(details, fmt.Sprintf("Field '%s' is required", fe.Field()))
		case "min":
			details = append(details, fmt.Sprintf("Field '%s' must be at least %s characters long", fe.Field(), fe.Param()))
		case "max":
			details = append(details, fmt.Sprintf("Field '%s' must be at most %s characters long", fe.Field(), fe.Param()))
		case "e164":
			details = append(details, fmt.Sprintf("Field '%s' must be a valid phone number", fe.Field()))
		case "gt":
			details = append(details, fmt.Sprintf("Field '%s' must be greater than %s", fe.Field(), fe.Param()))
		default:
			details = append(details, fmt.Sprintf("Field '%s' is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return details
}

// decodeAndValidate reads a JSON body into dst and validates it. On failure
// the response is already written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload: %v", err))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			details := formatValidationErrors(validationErrors)
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed: " + strings.Join(details, "; "),
				Details: details,
			})
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}

	return true
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
