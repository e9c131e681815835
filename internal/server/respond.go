package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/matzehuels/causalcanvas/pkg/errors"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes err as {"error": code, "message": text}. Server-side
// failures are logged; their message is not exposed.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var rl *apperrors.RateLimitedError
	if errors.As(err, &rl) {
		if rl.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter))
		}
		respondJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:   string(apperrors.ErrCodeRateLimited),
			Message: rl.Error(),
		})
		return
	}

	status := statusFor(err)
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	msg := apperrors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	respondJSON(w, status, errorResponse{Error: string(code), Message: msg})
}

// statusFor maps an error code to an HTTP status. An exceeded body limit
// wins over whatever code wraps it.
func statusFor(err error) int {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	code := apperrors.GetCode(err)
	switch {
	case code == apperrors.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case strings.HasPrefix(string(code), "INVALID_"), code == apperrors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case strings.HasSuffix(string(code), "NOT_FOUND"):
		return http.StatusNotFound
	case code == apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case code == apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case code == apperrors.ErrCodeNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// tooLarge rewraps err as [apperrors.ErrCodeTooLarge] when the request body
// exceeded maxBodyBytes, and returns it unchanged otherwise.
func tooLarge(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return apperrors.Wrap(apperrors.ErrCodeTooLarge, err, "request body exceeds %d bytes", mbe.Limit)
	}
	return err
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return tooLarge(apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid request body"))
	}
	return nil
}

// decodeOptionalJSON is decodeJSON but accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return tooLarge(apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid request body"))
}
