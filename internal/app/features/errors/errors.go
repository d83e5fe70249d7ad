// internal/app/features/errors/errors.go
//
// Package errors writes the JSON error responses shared by every feature.
// Features import it as uierrors.
package errors

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/limits"
	"go.uber.org/zap"
)

// Body is the error envelope.
type Body struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads a JSON body into v. Unknown fields are rejected.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func RenderBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	WriteJSON(w, http.StatusBadRequest, Body{Error: msg})
}

func RenderNotFound(w http.ResponseWriter, r *http.Request, msg string) {
	WriteJSON(w, http.StatusNotFound, Body{Error: msg})
}

func RenderForbidden(w http.ResponseWriter, r *http.Request, msg string) {
	if msg == "" {
		msg = "You don't have permission to do this."
	}
	WriteJSON(w, http.StatusForbidden, Body{Error: msg})
}

func RenderUnauthorized(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusUnauthorized, Body{Error: "Please sign in to continue."})
}

func RenderConflict(w http.ResponseWriter, r *http.Request, msg string) {
	WriteJSON(w, http.StatusConflict, Body{Error: msg})
}

// RenderValidation writes 400 with the first message and the per-field map.
func RenderValidation(w http.ResponseWriter, r *http.Request, res *inputval.Result) {
	WriteJSON(w, http.StatusBadRequest, Body{Error: res.First(), Fields: res.Fields()})
}

/*─────────────────────────────────────────────────────────────────────────────*
| ErrorLogger                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// ErrorLogger logs the technical error and writes a fixed user message.
type ErrorLogger struct {
	log *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// LogServerError logs err at error level and writes 500 with userMsg.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Error(msg, zap.Error(err), zap.String("method", r.Method), zap.String("path", r.URL.Path))
	WriteJSON(w, http.StatusInternalServerError, Body{Error: userMsg})
}

// LogBadRequest logs err at debug level and writes 400 with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Debug(msg, zap.Error(err), zap.String("path", r.URL.Path))
	WriteJSON(w, http.StatusBadRequest, Body{Error: userMsg})
}

// LogPartialFailure logs a multi-write that stopped halfway and writes 500.
func (e *ErrorLogger) LogPartialFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	e.log.Error(msg, zap.Error(err), zap.String("path", r.URL.Path))
	WriteJSON(w, http.StatusInternalServerError, Body{Error: "The change was only partly saved. Please check and try again."})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Pages                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// Handler serves the /forbidden and /unauthorized landing endpoints that
// the auth middleware redirects browsers to.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

type pageData struct {
	Error      string `json:"error"`
	IsLoggedIn bool   `json:"is_logged_in"`
	Role       string `json:"role,omitempty"`
	UserName   string `json:"user_name,omitempty"`
	BackURL    string `json:"back_url"`
}

// Forbidden handles GET /forbidden.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	role, name, _, signedIn := authz.UserCtx(r)
	WriteJSON(w, http.StatusForbidden, pageData{
		Error:      "You don't have permission to view this page.",
		IsLoggedIn: signedIn,
		Role:       string(role),
		UserName:   name,
		BackURL:    "/dashboard",
	})
}

// Unauthorized handles GET /unauthorized.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusUnauthorized, pageData{
		Error:   "Please sign in to continue.",
		BackURL: "/login",
	})
}
