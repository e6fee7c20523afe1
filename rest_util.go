package main

import (
	"encoding/json"
	"io"
	"net/http"

	"golang.org/x/exp/slog"
)

//*******************************************
// rest helpers
//*******************************************

func ReadRequestBody[T any](r *http.Request) (T, error) {
	var request T
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return request, err
	}
	err = json.Unmarshal(data, &request)
	return request, err
}

func WriteResponse[T any](w http.ResponseWriter, response T, status int) {
	data, err := json.Marshal(response)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteError(w http.ResponseWriter, message string, status int) {
	WriteResponse(w, ErrorResponse{Error: message}, status)
}

func MapPost(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	http.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		slog.Debug("handling request", "path", pattern)
		handler(w, r)
	})
}

func MapGet(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	http.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		slog.Debug("handling request", "path", pattern)
		handler(w, r)
	})
}
