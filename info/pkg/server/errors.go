package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sdig/erddap/info/pkg/coverage"
	"github.com/sdig/erddap/info/pkg/dsg"
	"github.com/sdig/erddap/info/pkg/erddap"
	"github.com/sdig/erddap/info/pkg/gapfill"
	"github.com/sdig/erddap/info/pkg/table"
)

// statusClientClosedRequest is nginx's code for a client that went away
// before the response was ready.
const statusClientClosedRequest = 499

// errBadRequest marks errors caused by the request parameters.
var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps an error to an HTTP status and a short error code.
func statusFor(err error) (int, string) {
	var (
		missingAttr  *table.MissingAttributeError
		ambiguous    *table.AmbiguousMetadataError
		unsupported  *dsg.UnsupportedTypeError
		missingID    *dsg.MissingIdentifierError
		missingZ     *dsg.MissingVerticalVariableError
		dateParse    *coverage.DateParseError
		columnErr    *gapfill.ColumnError
		timeValueErr *gapfill.TimeValueError
		unsortedErr  *gapfill.UnsortedError
		statusErr    *erddap.StatusError
		fetchErr     *erddap.FetchError
	)

	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, erddap.ErrInvalidURL),
		errors.As(err, &columnErr), errors.As(err, &timeValueErr), errors.As(err, &unsortedErr):
		return http.StatusBadRequest, "bad_request"
	case errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound:
		return http.StatusNotFound, "dataset_not_found"
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, "upstream_error"
	case errors.As(err, &missingAttr), errors.As(err, &ambiguous), errors.As(err, &unsupported),
		errors.As(err, &missingID), errors.As(err, &missingZ), errors.As(err, &dateParse):
		return http.StatusUnprocessableEntity, "invalid_metadata"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	reqID := middleware.GetReqID(r.Context())

	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		s.log.Error("server: request failed", "path", r.URL.Path, "request_id", reqID, "error", err)
		hub := sentry.CurrentHub().Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("request_id", reqID)
			scope.SetRequest(r)
		})
		hub.CaptureException(err)
	} else {
		s.log.Debug("server: request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	body, _ := json.Marshal(errorResponse{Error: code, Message: err.Error(), RequestID: reqID})
	s.writeBody(w, status, append(body, '\n'))
}

// writeJSON encodes v before writing any header so that an unencodable value becomes a 500
// instead of a truncated 200.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.writeError(w, r, fmt.Errorf("encode response: %w", err))
		return
	}
	s.writeBody(w, status, buf.Bytes())
}

func (s *Server) writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.log.Error("server: failed to write response", "error", err)
	}
}
