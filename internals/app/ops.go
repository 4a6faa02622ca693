package app

import (
	"context"
	"net/http"

	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type LoopRestorer interface {
	RestoreStalledLoops(ctx context.Context) (int, error)
}

type StatsReader interface {
	Stats(ctx context.Context, monitorID uuid.UUID, period string) (monitor.Stats, error)
	RecentFailures(ctx context.Context, monitorID uuid.UUID, limit int) ([]monitor.FailureView, error)
}

type QueueInspector interface {
	DelayedCount(ctx context.Context, queue string) (int64, error)
}

// OpsHandler serves the operational endpoints of the engine: health,
// the manual recovery sweep, queue depths and per-monitor uptime stats.
type OpsHandler struct {
	restorer   LoopRestorer
	stats      StatsReader
	queues     QueueInspector
	queueNames []string
}

func NewOpsHandler(restorer LoopRestorer, stats StatsReader, queues QueueInspector, queueNames []string) *OpsHandler {
	return &OpsHandler{
		restorer:   restorer,
		stats:      stats,
		queues:     queues,
		queueNames: queueNames,
	}
}

func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	utils.WriteJSON(w, http.StatusOK, reqID, "ok", struct{}{})
}

func (h *OpsHandler) RestoreLoops(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	restored, err := h.restorer.RestoreStalledLoops(r.Context())
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "restore sweep complete", struct {
		Restored int `json:"restored"`
	}{Restored: restored})
}

func (h *OpsHandler) QueueDepths(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	depths := make(map[string]int64, len(h.queueNames))
	for _, name := range h.queueNames {
		count, err := h.queues.DelayedCount(r.Context(), name)
		if err != nil {
			utils.FromAppError(w, reqID, err)
			return
		}
		depths[name] = count
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "delayed queue depths", depths)
}

func (h *OpsHandler) MonitorStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	monitorID, err := uuid.Parse(chi.URLParam(r, "monitorID"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}

	stats, err := h.stats.Stats(r.Context(), monitorID, r.URL.Query().Get("period"))
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "monitor stats", stats)
}

// recentFailureLimit bounds the failure listing; enough for an
// incident glance without paginating.
const recentFailureLimit = 20

func (h *OpsHandler) MonitorFailures(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	monitorID, err := uuid.Parse(chi.URLParam(r, "monitorID"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}

	failures, err := h.stats.RecentFailures(r.Context(), monitorID, recentFailureLimit)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "recent failures", failures)
}
