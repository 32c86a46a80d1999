package handler

import "net/http"

// emptyResponse represents an empty HTTP response with only a status code
type emptyResponse struct {
	status int
}

func (e emptyResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(e.status)
	return nil
}

// EmptyWithStatus creates an empty response with a custom status code.
func EmptyWithStatus(status int) Response {
	return emptyResponse{status: status}
}

// NotFound is an empty 404.
func NotFound() Response {
	return EmptyWithStatus(http.StatusNotFound)
}
