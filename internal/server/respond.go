package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"theonebook/internal/app"
	"theonebook/internal/usertoken"
	"theonebook/internal/util"
)

const maxJSONBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error          string           `json:"error"`
	Code           string           `json:"code"`
	RequestID      string           `json:"requestId,omitempty"`
	Details        []app.FieldError `json:"details,omitempty"`
	Duplicate      bool             `json:"duplicate,omitempty"`
	ExistingPageID int64            `json:"existingPageId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	resp.RequestID = strings.TrimSpace(w.Header().Get("X-Request-Id"))
	writeJSON(w, status, resp)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "SYSTEM_METHOD_NOT_ALLOWED", "method not allowed")
}

func invalidRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, "REQUEST_INVALID", msg)
}

// writeAppError maps application errors onto status codes. Anything
// unrecognized is logged and reported as an opaque 500.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr     *app.ValidationError
		notFound *app.NotFoundError
		conflict *app.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		writeErrorResponse(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid request",
			Code:    "REQUEST_INVALID",
			Details: verr.Fields,
		})
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, strings.ToUpper(notFound.Entity)+"_NOT_FOUND", notFound.Entity+" not found")
	case errors.As(err, &conflict):
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Error:          conflict.Error(),
			Code:           "PAGE_DUPLICATE_TITLE",
			Duplicate:      true,
			ExistingPageID: conflict.ExistingID,
		})
	case errors.Is(err, usertoken.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "AUTH_TOKEN_EXPIRED", "token expired")
	case errors.Is(err, usertoken.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "unauthorized")
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, app.ErrFileRequired):
		writeError(w, http.StatusBadRequest, "UPLOAD_FILE_REQUIRED", "file is required (field: file)")
	case errors.Is(err, app.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "UPLOAD_FILE_TOO_LARGE", "file too large")
	case errors.Is(err, app.ErrUnsupportedFileType):
		writeError(w, http.StatusBadRequest, "UPLOAD_UNSUPPORTED_FILE_TYPE", "unsupported file type")
	default:
		util.LoggerFromContext(r.Context()).Error("request_failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, "SYSTEM_INTERNAL_ERROR", "internal error")
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// decodeJSON reads a bounded JSON body into dst and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(dst); err != nil {
		invalidRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// pathID parses the {id} route parameter and writes a 400 when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		invalidRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

// flexInt accepts a JSON number or a numeric string. Absent, null and ""
// all leave it unset.
type flexInt struct {
	set   bool
	value int64
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*f = flexInt{}
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			*f = flexInt{}
			return nil
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("expected an integer, got %s", b)
	}
	*f = flexInt{set: true, value: n}
	return nil
}

func (f flexInt) int64Ptr() *int64 {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

func (f flexInt) intPtr() *int {
	if !f.set {
		return nil
	}
	v := int(f.value)
	return &v
}
