// ABOUTME: HTTP route handlers for APIs, services, and methods
// ABOUTME: Parses form or JSON bodies and maps directory errors to status codes

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/2389/sd/internal/directory"
)

// maxBodyBytes bounds request bodies; bodies carry at most three short fields.
const maxBodyBytes = 64 << 10

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api", s.handleListAPIs)
	mux.HandleFunc("GET /api/{api}", s.handleShowAPI)
	mux.HandleFunc("PUT /api/{api}", s.handleCreateAPI)
	mux.HandleFunc("DELETE /api/{api}", s.handleDeleteAPI)

	mux.HandleFunc("PUT /api/{api}/method/{method}", s.handleCreateMethod)
	mux.HandleFunc("DELETE /api/{api}/method/{method}", s.handleDeleteMethod)

	mux.HandleFunc("GET /service", s.handleListServices)
	mux.HandleFunc("GET /service/{service}", s.handleShowService)
	mux.HandleFunc("PUT /service/{service}", s.handleCreateService)
	mux.HandleFunc("DELETE /service/{service}", s.handleDeleteService)
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleCreateAPI(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.directory.CreateAPI(r.Context(), r.PathValue("api")))
}

func (s *Server) handleDeleteAPI(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.directory.DeleteAPI(r.Context(), r.PathValue("api")))
}

func (s *Server) handleShowAPI(w http.ResponseWriter, r *http.Request) {
	info, err := s.directory.ShowAPI(r.Context(), r.PathValue("api"))
	s.respondJSON(w, r, info, err)
}

func (s *Server) handleListAPIs(w http.ResponseWriter, r *http.Request) {
	labels, err := s.directory.ListAPIs(r.Context())
	s.respondJSON(w, r, labels, err)
}

func (s *Server) handleCreateMethod(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.directory.CreateMethod(r.Context(), r.PathValue("api"), r.PathValue("method")))
}

func (s *Server) handleDeleteMethod(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.directory.DeleteMethod(r.Context(), r.PathValue("api"), r.PathValue("method")))
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	fields, err := parseFields(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	err = s.directory.CreateService(r.Context(),
		r.PathValue("service"),
		fields["service_type"],
		fields["api"],
		fields["endpoint"],
	)
	s.respond(w, r, err)
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.directory.DeleteService(r.Context(), r.PathValue("service")))
}

func (s *Server) handleShowService(w http.ResponseWriter, r *http.Request) {
	info, err := s.directory.ShowService(r.Context(), r.PathValue("service"))
	s.respondJSON(w, r, info, err)
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	labels, err := s.directory.ListServices(r.Context())
	s.respondJSON(w, r, labels, err)
}

// badBodyError reports a request body that could not be decoded.
type badBodyError struct {
	err error
}

func (e *badBodyError) Error() string {
	return fmt.Sprintf("invalid request body: %v", e.err)
}

func (e *badBodyError) Unwrap() error {
	return e.err
}

// parseFields reads body fields from a JSON object or a urlencoded form.
// Where a field repeats in a form, the first value wins.
func parseFields(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		fields := map[string]string{}
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			return nil, &badBodyError{err: err}
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, &badBodyError{err: err}
	}
	fields := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		fields[key] = r.PostForm.Get(key)
	}
	return fields, nil
}

// respond writes an empty 200 on success.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) respondJSON(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err, "path", r.URL.Path)
	}
}

// statusFor maps an error to its HTTP status and the message sent to the client.
// ok is false for errors the client should not see.
func statusFor(err error) (status int, message string, ok bool) {
	var (
		dup      *directory.DuplicateError
		notFound *directory.NotFoundError
		badArg   *directory.BadArgumentError
		badBody  *badBodyError
	)
	switch {
	case errors.As(err, &dup):
		return http.StatusConflict, dup.Error(), true
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error(), true
	case errors.As(err, &badArg):
		return http.StatusBadRequest, badArg.Error(), true
	case errors.As(err, &badBody):
		return http.StatusBadRequest, badBody.Error(), true
	default:
		return http.StatusInternalServerError, "internal server error", false
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message, ok := statusFor(err)
	if !ok {
		s.logger.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path, "request_id", requestID(r.Context()))
		if s.config.Server.Debug {
			message = err.Error()
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
