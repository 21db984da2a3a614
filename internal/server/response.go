package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/raphaelgruber/fortroute/internal/graph"
	"github.com/raphaelgruber/fortroute/internal/learning"
	"github.com/raphaelgruber/fortroute/internal/planner"
	"github.com/raphaelgruber/fortroute/internal/sites"
)

// maxBodyBytes bounds request bodies. Store imports are the largest payload.
const maxBodyBytes = 8 << 20

// envelope wraps every JSON response.
type envelope struct {
	Status string    `json:"status"`
	Data   any       `json:"data"`
	Error  *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errBadRequest marks undecodable or invalid request bodies.
var errBadRequest = errors.New("bad request")

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	s.writeEnvelope(w, status, envelope{Status: "success", Data: data})
}

func (s *Server) writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	data, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// respondError maps err onto a status code and error envelope.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error", "error", err)
	}
	s.writeEnvelope(w, status, envelope{
		Status: "error",
		Error:  &apiError{Code: code, Message: err.Error()},
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, sites.ErrSiteNotFound):
		return http.StatusNotFound, "SITE_NOT_FOUND"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, learning.ErrInvalidInteraction):
		return http.StatusBadRequest, "INVALID_INTERACTION"
	case errors.Is(err, learning.ErrInvalidConfig):
		return http.StatusBadRequest, "INVALID_CONFIG"
	case errors.Is(err, planner.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_PLAN_REQUEST"
	case errors.Is(err, graph.ErrMalformedGraph):
		return http.StatusBadRequest, "MALFORMED_GRAPH"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return s.check(dst)
}

func (s *Server) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", errBadRequest, strings.Join(msgs, "; "))
}
