package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/github-api-client/pkg/client"
)

// apiError is an error raised by the API layer itself. It is always shown
// to the caller.
type apiError struct {
	Status      int
	Message     string
	Description any
}

func (e *apiError) Error() string {
	return e.Message
}

// errorBody is the response body of failed requests.
type errorBody struct {
	Message     string `json:"message" msgpack:"message"`
	Description any    `json:"description,omitempty" msgpack:"description,omitempty"`
}

// fail writes err to the caller. API errors and exposable client errors are
// shown as they are; anything else becomes a generic internal server error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	var apiErr *apiError
	if errors.As(err, &apiErr) {
		logger.Debug().Int("status", apiErr.Status).Str("message", apiErr.Message).Msg("Request rejected")
		respond(w, r, apiErr.Status, errorBody{Message: apiErr.Message, Description: apiErr.Description})
		return
	}

	status, message, description := client.Expose(err)
	body := errorBody{Message: message}
	if description != "" {
		body.Description = description
	}

	var ce *client.ClientError
	if errors.As(err, &ce) && ce.Exposable {
		logger.Warn().Err(err).Int("status", status).Msg("GitHub request failed")
	} else {
		logger.Error().Err(err).Msg("Unhandled error")
	}

	respond(w, r, status, body)
}
