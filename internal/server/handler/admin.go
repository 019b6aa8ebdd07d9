package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// AdminService defines the admin gate surface the admin handler requires
// from the ledger engine.
type AdminService interface {
	Initialize(ctx context.Context, admin, oracleRef string) error
	SetOracle(ctx context.Context, caller, oracleRef string) error
	Pause(ctx context.Context, caller string) error
	Unpause(ctx context.Context, caller string) error
}

// AdminHandler serves the one-time initialization and admin gate endpoints.
// The engine's own admin equality check is authoritative; the admin token
// middleware in front of these routes is only a transport-level gate.
type AdminHandler struct {
	admin  AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given service and logger.
func NewAdminHandler(admin AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logHandler(logger, "admin"),
	}
}

// initializeRequest is the body for first-run initialization.
type initializeRequest struct {
	Admin     string `json:"admin"`
	OracleRef string `json:"oracle_ref"`
}

// Initialize performs the one-time market setup.
// POST /api/admin/initialize
func (h *AdminHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	admin, err := parseAddress(req.Admin)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid admin address")
		return
	}
	if req.OracleRef == "" {
		writeError(w, http.StatusBadRequest, "oracle_ref must not be empty")
		return
	}

	if err := h.admin.Initialize(r.Context(), admin, req.OracleRef); err != nil {
		writeDomainError(w, r, h.logger, "initialize", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"initialized": true,
		"admin":       admin,
		"oracle_ref":  req.OracleRef,
	})
}

// setOracleRequest is the body for rewiring the status authority.
type setOracleRequest struct {
	Caller    string `json:"caller"`
	OracleRef string `json:"oracle_ref"`
}

// SetOracle swaps the status authority reference.
// POST /api/admin/oracle
func (h *AdminHandler) SetOracle(w http.ResponseWriter, r *http.Request) {
	var req setOracleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	if req.OracleRef == "" {
		writeError(w, http.StatusBadRequest, "oracle_ref must not be empty")
		return
	}

	if err := h.admin.SetOracle(r.Context(), caller, req.OracleRef); err != nil {
		writeDomainError(w, r, h.logger, "set oracle", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"oracle_ref": req.OracleRef})
}

// pauseRequest carries the acting admin address.
type pauseRequest struct {
	Caller string `json:"caller"`
}

// Pause halts admin-gated mutations.
// POST /api/admin/pause
func (h *AdminHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Unpause lifts the pause.
// POST /api/admin/unpause
func (h *AdminHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *AdminHandler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	var req pauseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	op := h.admin.Unpause
	opName := "unpause"
	if paused {
		op = h.admin.Pause
		opName = "pause"
	}
	if err := op(r.Context(), caller); err != nil {
		writeDomainError(w, r, h.logger, opName, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}
