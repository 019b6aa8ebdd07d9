package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/predictx/marketd/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a ledger error onto an HTTP status and writes it.
// Unrecognized errors become opaque 500s and are logged; precondition errors
// surface their message verbatim since they carry no internal detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "handler: "+op+" failed",
			slog.String("error", err.Error()),
		)
		writeError(w, status, op+" failed")
		return
	}
	writeError(w, status, err.Error())
}

// statusFor translates domain sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPollNotFound),
		errors.Is(err, domain.ErrMatchNotFound),
		errors.Is(err, domain.ErrNotStaker),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrNotInitialized),
		errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrPaused),
		errors.Is(err, domain.ErrPollNotActive),
		errors.Is(err, domain.ErrPollLocked),
		errors.Is(err, domain.ErrAlreadyStaked),
		errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrMatchAlreadyStarted),
		errors.Is(err, domain.ErrEmergencyNotAllowed),
		errors.Is(err, domain.ErrLockHeld):
		return http.StatusConflict

	case errors.Is(err, domain.ErrStakeAmountZero),
		errors.Is(err, domain.ErrInvalidLockTime),
		errors.Is(err, domain.ErrQuestionTooLong),
		errors.Is(err, domain.ErrMaxPollsPerMatch),
		errors.Is(err, domain.ErrInvalidSide),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrPoolOverflow):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// pathID extracts a named path parameter and parses it as a uint64 ID using
// Go 1.22+ built-in routing (http.Request.PathValue).
func pathID(r *http.Request, name string) (uint64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// parseInt64 parses a base-10 signed integer query parameter.
func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// parseAddress validates an EVM-style hex address and returns its EIP-55
// checksummed form. All acting identities (stakers, admins, custody) are
// addresses of this shape.
func parseAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", domain.ErrInvalidAddress
	}
	return common.HexToAddress(s).Hex(), nil
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
