// internal/app/features/health/handler.go
package health

import (
	"context"
	"net/http"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client
	Redis  redis.UniversalClient
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. rdb may be nil when Redis is not
// configured.
func NewHandler(client *mongo.Client, rdb redis.UniversalClient, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Redis:  rdb,
		Log:    logger,
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "redis":"connected" }
//
// On any ping failure: 503 with the failing dependency marked.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Redis:    "disabled",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		uierrors.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			h.Log.Error("health-check: redis ping failed", zap.Error(err))
			resp.Status = "error"
			resp.Redis = "disconnected"
			resp.Message = "Device state store unavailable"
			resp.Error = err.Error()
			uierrors.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Redis = "connected"
	}

	uierrors.WriteJSON(w, http.StatusOK, resp)
}
