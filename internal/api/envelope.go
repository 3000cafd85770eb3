package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the "v" field of every JSON response.
const EnvelopeVersion = 1

// Envelope wraps every JSON response body.
type Envelope struct {
	Version int        `json:"v"`
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error half of an envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer is a huma transformer that wraps response bodies in an Envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case Envelope, *Envelope:
		return v, nil
	case *APIError:
		return errorEnvelope(body.Code, body.Message, body.Details), nil
	case error:
		code, _ := strconv.Atoi(status)
		var apiErr *APIError
		if errors.As(body, &apiErr) {
			return errorEnvelope(apiErr.Code, apiErr.Message, apiErr.Details), nil
		}
		return errorEnvelope(statusToCode(code), body.Error(), nil), nil
	}

	return Envelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
}

func errorEnvelope(code, message string, details any) Envelope {
	return Envelope{
		Version: EnvelopeVersion,
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
	}
}

// writeError writes an error envelope outside of huma (chi middleware, raw handlers).
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // nothing useful to do if the client is gone
	_ = json.NewEncoder(w).Encode(errorEnvelope(code, message, nil))
}
