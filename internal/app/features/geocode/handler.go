// internal/app/features/geocode/handler.go
package geocode

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/geocode"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// Handler exposes address lookup for the event location picker.
type Handler struct {
	Geo    *geocode.Client
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(geo *geocode.Client, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Geo: geo, ErrLog: errLog, Log: logger}
}

// lookupFailure is the body for a failed lookup. ManualEntry tells the
// client to offer coordinate entry instead.
type lookupFailure struct {
	Error       string `json:"error"`
	ManualEntry bool   `json:"manual_entry"`
}

func (h *Handler) lookupError(w http.ResponseWriter, r *http.Request, err error) {
	var le *geocode.LookupError
	switch {
	case errors.Is(err, geocode.ErrNoResult):
		uierrors.WriteJSON(w, http.StatusNotFound, lookupFailure{Error: "Adresse introuvable."})
	case errors.Is(err, geocode.ErrBadCoords):
		uierrors.RenderBadRequest(w, r, "Coordonnées invalides.")
	case errors.As(err, &le):
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.Log.Warn("geocode lookup failed", zap.String("op", le.Op), zap.Error(err))
		uierrors.WriteJSON(w, status, lookupFailure{Error: le.Message(), ManualEntry: le.ManualEntry})
	default:
		h.ErrLog.LogServerError(w, r, "geocode lookup", err, "Erreur lors de la recherche de l'adresse.")
	}
}

// ServeSearch handles GET /geocode/search?q=.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	q := query.Get(r, "q")
	if q == "" {
		uierrors.RenderBadRequest(w, r, "Search text is required.")
		return
	}
	res, err := h.Geo.Search(r.Context(), q)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, res)
}

// ServeReverse handles GET /geocode/reverse?lat=&lng=. An unreachable
// server still answers 200 with a coordinate label.
func (h *Handler) ServeReverse(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(query.Get(r, "lat"), 64)
	lng, err2 := strconv.ParseFloat(query.Get(r, "lng"), 64)
	if err1 != nil || err2 != nil {
		uierrors.RenderBadRequest(w, r, "Coordonnées invalides.")
		return
	}
	res, err := h.Geo.Reverse(r.Context(), lat, lng)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, res)
}

type manualInput struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// HandleManual handles POST /geocode/manual: coordinates typed by hand.
func (h *Handler) HandleManual(w http.ResponseWriter, r *http.Request) {
	var in manualInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode manual coordinates", err, "Invalid request body.")
		return
	}
	res, err := geocode.ParseManual(in.Lat, in.Lng)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, res)
}
