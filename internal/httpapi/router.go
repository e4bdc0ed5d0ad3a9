// Package httpapi exposes the queue controller's operations over HTTP
// (spec.md §4.2, §8 "inbound API"): a thin go-chi router translating
// JSON requests into queuecontroller calls and rendering responses
// through the formatting package.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"testprobe/internal/formatting"
	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
	"testprobe/internal/queuecontroller"
	"testprobe/pkg/logging"
)

// requestTimeout bounds every inbound HTTP request's dispatch to the
// queue controller, independent of the breaker's own call-timeout.
const requestTimeout = 30 * time.Second

// Server wires the queue controller into an HTTP handler tree.
type Server struct {
	qc        *queuecontroller.Controller
	formatter formatting.Formatter
}

// NewRouter builds the probe's HTTP API handler.
func NewRouter(qc *queuecontroller.Controller) http.Handler {
	s := &Server{
		qc:        qc,
		formatter: formatting.NewFactory().CreateFormatter(formatting.Options{Format: formatting.FormatJSON}),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/tests", func(r chi.Router) {
		r.Get("/", s.handleQueueStatus)
		r.Post("/", s.handleInitializeTest)
		r.Route("/{testID}", func(r chi.Router) {
			r.Get("/", s.handleStatus)
			r.Post("/start", s.handleStartTest)
			r.Post("/run", s.handleStartTesting)
			r.Delete("/", s.handleCancel)
		})
	})

	return r
}

type startTestRequest struct {
	Bucket   string `json:"bucket"`
	TestType string `json:"testType"`
}

func (s *Server) handleInitializeTest(w http.ResponseWriter, r *http.Request) {
	resp, err := s.qc.InitializeTest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"testId": string(resp.TestID)})
}

func (s *Server) handleStartTest(w http.ResponseWriter, r *http.Request) {
	testID := probetypes.TestID(chi.URLParam(r, "testID"))

	var body startTestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, probeerrors.New(probeerrors.KindValidation, "malformed request body: %v", err))
		return
	}
	if body.Bucket == "" {
		writeError(w, probeerrors.New(probeerrors.KindValidation, "bucket is required"))
		return
	}

	resp, err := s.qc.StartTest(r.Context(), testID, body.Bucket, body.TestType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": resp.Accepted})
}

func (s *Server) handleStartTesting(w http.ResponseWriter, r *http.Request) {
	testID := probetypes.TestID(chi.URLParam(r, "testID"))
	if err := s.qc.StartTesting(r.Context(), testID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	testID := probetypes.TestID(chi.URLParam(r, "testID"))
	status, err := s.qc.Status(r.Context(), testID)
	if err != nil {
		writeError(w, err)
		return
	}
	summary := formatting.TestSummary{TestID: string(status.TestID), State: string(status.State)}
	if status.LastError != nil {
		summary.Error = status.LastError.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.formatter.FormatTestDetail(summary)))
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	qs := s.qc.QueueStatus()
	summaries := make([]formatting.TestSummary, 0, len(qs.Tests))
	for _, t := range qs.Tests {
		sum := formatting.TestSummary{TestID: string(t.TestID), State: string(t.State)}
		if t.LastError != nil {
			sum.Error = t.LastError.Error()
		}
		summaries = append(summaries, sum)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.formatter.FormatTestList(summaries)))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	testID := probetypes.TestID(chi.URLParam(r, "testID"))
	resp, err := s.qc.Cancel(r.Context(), testID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !resp.Cancelled {
		writeJSON(w, http.StatusConflict, map[string]string{"cancelled": "false", "reason": resp.Reason})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn("HTTPAPI", "encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var pe *probeerrors.ProbeError
	if errors.As(err, &pe) {
		switch pe.Code {
		case probeerrors.KindNotFound:
			status = http.StatusNotFound
		case probeerrors.KindGone:
			status = http.StatusGone
		case probeerrors.KindServiceUnavailable:
			status = http.StatusServiceUnavailable
		case probeerrors.KindServiceTimeout:
			status = http.StatusGatewayTimeout
		case probeerrors.KindValidation:
			status = http.StatusBadRequest
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
