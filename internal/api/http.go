package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/miradorstack/flightwatch/internal/engine"
	"github.com/miradorstack/flightwatch/internal/models"
	"github.com/miradorstack/flightwatch/internal/monitor"
	"github.com/miradorstack/flightwatch/internal/sink"
)

const defaultListLimit = 50

// Evaluator is the engine facade the HTTP API evaluates through.
type Evaluator interface {
	EvaluateSnapshot(ctx context.Context, snap models.FlightSnapshot) (models.Evaluation, error)
	Rules() []engine.RuleInfo
}

// AnomalyBoard is the lifecycle store behind the anomaly routes.
type AnomalyBoard interface {
	List(f sink.Filter) []sink.Entry
	Acknowledge(id, by string) (sink.Entry, error)
	Resolve(id string) (sink.Entry, error)
	Summary() sink.Summary
}

// MonitorControl exposes the monitor loop to operators.
type MonitorControl interface {
	Status() monitor.Status
	Pause()
	Resume()
	Current() (models.FlightSnapshot, models.Evaluation, bool)
}

type handler struct {
	eval    Evaluator
	board   AnomalyBoard
	monitor MonitorControl
	logger  *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type listResponse struct {
	Anomalies []sink.Entry `json:"anomalies"`
	Total     int          `json:"total"`
}

type acknowledgeRequest struct {
	By string `json:"by"`
}

// NewRouter builds the REST API. board and mon may be nil, in which case
// their routes answer 503.
func NewRouter(eval Evaluator, board AnomalyBoard, mon MonitorControl, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{eval: eval, board: board, monitor: mon, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/rules", h.rules)
		r.Post("/evaluate", h.evaluate)
		r.Get("/summary", h.summary)
		r.Get("/display", h.display)
		r.Route("/anomalies", func(r chi.Router) {
			r.Get("/", h.listAnomalies)
			r.Post("/{id}/acknowledge", h.acknowledge)
			r.Post("/{id}/resolve", h.resolve)
		})
		r.Route("/monitor", func(r chi.Router) {
			r.Get("/", h.monitorStatus)
			r.Post("/pause", h.pauseMonitor)
			r.Post("/resume", h.resumeMonitor)
		})
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (h *handler) rules(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.eval.Rules())
}

func (h *handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := render.DecodeJSON(r.Body, &fields); err != nil {
		h.fail(w, r, http.StatusBadRequest, "request body must be a JSON object: "+err.Error())
		return
	}
	snap, err := models.DecodeSnapshot(fields)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := h.eval.EvaluateSnapshot(r.Context(), snap)
	if err != nil {
		h.failErr(w, r, err)
		return
	}
	if ev.Anomalies == nil {
		ev.Anomalies = []models.AnomalyRecord{}
	}
	render.JSON(w, r, ev)
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	if h.board == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "anomaly board not configured")
		return
	}
	render.JSON(w, r, h.board.Summary())
}

// display projects the monitor's latest snapshot for the requested role.
// The manager block counts the board's active anomalies when a board is
// configured and the latest cycle's anomalies otherwise.
func (h *handler) display(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "monitor not running")
		return
	}
	role, err := models.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	snap, ev, ok := h.monitor.Current()
	if !ok {
		h.fail(w, r, http.StatusNotFound, "no snapshot evaluated yet")
		return
	}

	open := ev.Anomalies
	if role == models.RoleManager && h.board != nil {
		entries := h.board.List(sink.Filter{Status: models.StatusActive})
		open = make([]models.AnomalyRecord, len(entries))
		for i, e := range entries {
			open[i] = e.AnomalyRecord
		}
	}
	render.JSON(w, r, engine.Project(role, snap, open))
}

func (h *handler) listAnomalies(w http.ResponseWriter, r *http.Request) {
	if h.board == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "anomaly board not configured")
		return
	}
	q := r.URL.Query()
	f := sink.Filter{
		Status:   models.StatusActive,
		Severity: models.Severity(q.Get("severity")),
		Type:     models.AnomalyType(q.Get("type")),
		Limit:    defaultListLimit,
	}
	switch s := q.Get("status"); s {
	case "":
	case "all":
		f.Status = ""
	case string(models.StatusActive), string(models.StatusAcknowledged), string(models.StatusResolved):
		f.Status = models.Status(s)
	default:
		h.fail(w, r, http.StatusBadRequest, "unknown status "+strconv.Quote(s))
		return
	}
	if f.Severity != "" && f.Severity.Rank() == 0 {
		h.fail(w, r, http.StatusBadRequest, "unknown severity "+strconv.Quote(string(f.Severity)))
		return
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			h.fail(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = limit
	}

	entries := h.board.List(f)
	render.JSON(w, r, listResponse{Anomalies: entries, Total: len(entries)})
}

func (h *handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	if h.board == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "anomaly board not configured")
		return
	}
	var req acknowledgeRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.fail(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	entry, err := h.board.Acknowledge(chi.URLParam(r, "id"), req.By)
	if err != nil {
		h.failErr(w, r, err)
		return
	}
	render.JSON(w, r, entry)
}

func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	if h.board == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "anomaly board not configured")
		return
	}
	entry, err := h.board.Resolve(chi.URLParam(r, "id"))
	if err != nil {
		h.failErr(w, r, err)
		return
	}
	render.JSON(w, r, entry)
}

func (h *handler) monitorStatus(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "monitor not running")
		return
	}
	render.JSON(w, r, h.monitor.Status())
}

func (h *handler) pauseMonitor(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "monitor not running")
		return
	}
	h.monitor.Pause()
	h.logger.Info("monitor paused", slog.String("request_id", middleware.GetReqID(r.Context())))
	render.JSON(w, r, h.monitor.Status())
}

func (h *handler) resumeMonitor(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "monitor not running")
		return
	}
	h.monitor.Resume()
	h.logger.Info("monitor resumed", slog.String("request_id", middleware.GetReqID(r.Context())))
	render.JSON(w, r, h.monitor.Status())
}

func (h *handler) failErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidSnapshot):
		h.fail(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, sink.ErrNotFound):
		h.fail(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, sink.ErrInvalidTransition):
		h.fail(w, r, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		h.fail(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}
