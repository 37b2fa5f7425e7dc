package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/internal/metrics"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/classifier"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/devices"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/notify"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/readings"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/storage"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/wearable"
)

// Services are the collaborators the API exposes. Poller may be nil.
type Services struct {
	Readings    *readings.Service
	Feeds       *notify.Manager
	Devices     *devices.Registry
	Poller      *wearable.Poller
	DefaultUser string
}

// Server provides the HTTP API.
type Server struct {
	svc    Services
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates an API server.
func NewServer(svc Services, logger *slog.Logger) *Server {
	if svc.DefaultUser == "" {
		svc.DefaultUser = "default"
	}
	s := &Server{
		svc:    svc,
		mux:    http.NewServeMux(),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /api/v1/classify", s.handleClassify)
	s.mux.HandleFunc("POST /api/v1/insights", s.handleInsights)

	s.mux.HandleFunc("GET /api/v1/readings", s.handleListReadings)
	s.mux.HandleFunc("GET /api/v1/readings/latest", s.handleLatestReading)
	s.mux.HandleFunc("GET /api/v1/readings/stats", s.handleReadingStats)
	s.mux.HandleFunc("POST /api/v1/readings", s.handleCreateReading)
	s.mux.HandleFunc("DELETE /api/v1/readings/{id}", s.handleDeleteReading)
	s.mux.HandleFunc("POST /api/v1/heartrate", s.handleHeartRate)

	s.mux.HandleFunc("GET /api/v1/notifications", s.handleListNotifications)
	s.mux.HandleFunc("POST /api/v1/notifications/{id}/read", s.handleMarkRead)
	s.mux.HandleFunc("DELETE /api/v1/notifications/{id}", s.handleClearNotification)
	s.mux.HandleFunc("DELETE /api/v1/notifications", s.handleClearAll)

	s.mux.HandleFunc("GET /api/v1/devices", s.handleListDevices)
	s.mux.HandleFunc("POST /api/v1/devices/{id}/polling", s.handleStartPolling)
	s.mux.HandleFunc("DELETE /api/v1/devices/{id}/polling", s.handleStopPolling)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) user(r *http.Request) string {
	if u := r.URL.Query().Get("user"); u != "" {
		return u
	}
	return s.svc.DefaultUser
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type classifyResponse struct {
	Status          classifier.Status `json:"status"`
	Alert           string            `json:"alert,omitempty"`
	Recommendations []string          `json:"recommendations"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	systolic, err := strconv.Atoi(r.URL.Query().Get("systolic"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "systolic must be an integer")
		return
	}
	diastolic, err := strconv.Atoi(r.URL.Query().Get("diastolic"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "diastolic must be an integer")
		return
	}

	resp := classifyResponse{
		Status:          classifier.Classify(systolic, diastolic),
		Recommendations: classifier.Recommendations(systolic, diastolic),
	}
	if alert, ok := classifier.AlertFor(systolic, diastolic); ok {
		resp.Alert = alert.Title
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var entry classifier.ManualEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, classifier.Analyze(entry))
}

func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	reading, err := s.svc.Readings.Latest(ctx, s.user(r))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "no readings")
	case err != nil:
		s.logger.Error("latest reading", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, reading)
	}
}

func (s *Server) handleReadingStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	window := readings.DefaultStatsWindow
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive integer")
			return
		}
		window = n
	}

	stats, err := s.svc.Readings.Stats(ctx, s.user(r), window)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "no readings")
	case err != nil:
		s.logger.Error("reading stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := model.ReadingFilter{
		UserID: s.user(r),
		Source: model.ReadingSource(q.Get("source")),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	list, err := s.svc.Readings.History(ctx, filter)
	if err != nil {
		s.logger.Error("list readings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []model.BloodPressureReading{}
	}
	writeJSON(w, http.StatusOK, list)
}

type createReadingRequest struct {
	User      string `json:"user"`
	DeviceID  string `json:"device_id"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	Notes     string `json:"notes"`
	Source    string `json:"source"`
}

func (s *Server) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req createReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.User == "" {
		req.User = s.user(r)
	}

	reading, err := s.svc.Readings.Record(ctx, readings.Entry{
		UserID:    req.User,
		DeviceID:  req.DeviceID,
		Systolic:  req.Systolic,
		Diastolic: req.Diastolic,
		Notes:     req.Notes,
		Source:    model.ReadingSource(req.Source),
	})
	switch {
	case errors.Is(err, readings.ErrInvalidReading):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil && reading != nil:
		// Published for alerting but not durable.
		s.logger.Warn("reading accepted without persistence", "error", err)
		writeJSON(w, http.StatusAccepted, reading)
	case err != nil:
		s.logger.Error("record reading", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusCreated, reading)
	}
}

func (s *Server) handleDeleteReading(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err := s.svc.Readings.Delete(ctx, s.user(r), r.PathValue("id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "reading not found")
	case err != nil:
		s.logger.Error("delete reading", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type heartRateRequest struct {
	User      string `json:"user"`
	HeartRate int    `json:"heart_rate"`
	Source    string `json:"source"`
}

func (s *Server) handleHeartRate(w http.ResponseWriter, r *http.Request) {
	var req heartRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.User == "" {
		req.User = s.user(r)
	}
	if req.Source == "" {
		req.Source = "api"
	}

	sample, err := s.svc.Readings.RecordHeartRate(r.Context(), req.User, req.HeartRate, req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, sample)
}

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

type resultResponse struct {
	Result string `json:"result"`
}

// feed returns the user's notification feed. A feed whose backend could not
// be read is served empty rather than failing the request.
func (s *Server) feed(r *http.Request) *notify.Store {
	store, res := s.svc.Feeds.ForUser(r.Context(), s.user(r))
	if res == notify.ResultDegraded {
		s.logger.Warn("serving notification feed without persistence", "user", store.UserID())
	}
	return store
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	store := s.feed(r)
	writeJSON(w, http.StatusOK, notificationsResponse{
		Notifications: store.List(),
		Unread:        store.UnreadCount(),
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	store := s.feed(r)
	writeResult(w, store.MarkRead(r.Context(), r.PathValue("id")))
}

func (s *Server) handleClearNotification(w http.ResponseWriter, r *http.Request) {
	store := s.feed(r)
	writeResult(w, store.Clear(r.Context(), r.PathValue("id")))
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	store := s.feed(r)
	writeResult(w, store.ClearAll(r.Context()))
}

type deviceResponse struct {
	model.Device
	Polling bool `json:"polling"`
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	list := s.svc.Devices.List()
	out := make([]deviceResponse, 0, len(list))
	for _, d := range list {
		out = append(out, deviceResponse{
			Device:  d,
			Polling: s.svc.Poller != nil && s.svc.Poller.IsPolling(d.ID),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStartPolling(w http.ResponseWriter, r *http.Request) {
	if s.svc.Poller == nil {
		writeError(w, http.StatusNotImplemented, "polling disabled")
		return
	}

	// The session outlives the request.
	err := s.svc.Poller.Start(context.WithoutCancel(r.Context()), s.user(r), r.PathValue("id"))
	switch {
	case errors.Is(err, devices.ErrNotFound):
		writeError(w, http.StatusNotFound, "device not found")
	case errors.Is(err, wearable.ErrAlreadyPolling):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.logger.Error("start polling", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) handleStopPolling(w http.ResponseWriter, r *http.Request) {
	if s.svc.Poller == nil {
		writeError(w, http.StatusNotImplemented, "polling disabled")
		return
	}

	err := s.svc.Poller.Stop(r.PathValue("id"))
	switch {
	case errors.Is(err, wearable.ErrNotPolling):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.logger.Error("stop polling", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeResult(w http.ResponseWriter, res notify.Result) {
	status := http.StatusOK
	if res == notify.ResultFailed {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resultResponse{Result: res.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
