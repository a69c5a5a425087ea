// Package httpx holds the JSON envelope shared by every endpoint.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"runner-service/internal/apperr"
	"runner-service/internal/logging"
)

// Envelope is embedded in every response body.
type Envelope struct {
	ResponseCode int    `json:"responseCode"`
	ResponseDesc string `json:"responseDesc"`
	ErrorCode    string `json:"errorCode,omitempty"`
}

// Success returns a success envelope with the given description.
func Success(desc string) Envelope {
	return Envelope{ResponseCode: 0, ResponseDesc: desc}
}

// Failure returns the envelope for err. Non-domain errors become Internal.
func Failure(err error) Envelope {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.New(apperr.Internal)
	}
	return Envelope{ResponseCode: int(e.Code), ResponseDesc: e.Message, ErrorCode: e.Code.String()}
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 response. v is usually a struct embedding Envelope.
func OK(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, v)
}

// Fail maps err to its status and envelope. Internal causes are logged, not echoed.
func Fail(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	code := apperr.CodeOf(err)
	if code == apperr.Internal && log != nil {
		log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	WriteJSON(w, code.HTTPStatus(), Failure(err))
}

// maxBody bounds request bodies; company pictures may arrive inline.
const maxBody = 8 << 20

// Decode reads a JSON body into v. Malformed bodies are InvalidRequest.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Newf(apperr.InvalidRequest, "request body is required")
		}
		return apperr.Newf(apperr.InvalidRequest, "invalid body: %s", describe(err))
	}
	return nil
}

func describe(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	case errors.As(err, &maxErr):
		return "body too large"
	default:
		return "malformed JSON"
	}
}
