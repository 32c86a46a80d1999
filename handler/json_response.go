package handler

import (
	"encoding/json"
	"net/http"
)

// jsonResponse implements Response for JSON rendering
type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures JSON response
type JSONOption func(*jsonResponse)

// WithJSONStatus sets custom HTTP status code
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// JSON writes v as the response body, unwrapped, with status 200 by default.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: v}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ErrorBody is the JSON body of a failed request.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSONError writes {"error": message} with status 400 by default.
func JSONError(message string, opts ...JSONOption) Response {
	return JSON(ErrorBody{Error: message}, append([]JSONOption{WithJSONStatus(http.StatusBadRequest)}, opts...)...)
}
