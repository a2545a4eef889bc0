package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/labauth"
	"go.uber.org/zap"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type codeInfo struct {
	status  int
	message string
}

var codes = map[string]codeInfo{
	labauth.CodeIdentityExists:     {http.StatusConflict, "identity already registered"},
	labauth.CodePolicyViolation:    {http.StatusBadRequest, "password does not meet the policy"},
	labauth.CodeInvalidRequest:     {http.StatusBadRequest, "invalid request"},
	labauth.CodeInvalidCredentials: {http.StatusUnauthorized, "invalid credentials"},
	labauth.CodeAccountInactive:    {http.StatusForbidden, "account inactive"},
	labauth.CodeInvalidToken:       {http.StatusUnauthorized, "invalid or expired token"},
	labauth.CodeRateLimited:        {http.StatusTooManyRequests, "too many attempts, try again later"},
	labauth.CodeCSRFMissing:        {http.StatusForbidden, "csrf token missing"},
	labauth.CodeCSRFInvalid:        {http.StatusForbidden, "csrf token invalid"},
	labauth.CodeStoreUnavailable:   {http.StatusServiceUnavailable, "service temporarily unavailable"},
	labauth.CodeNotFound:           {http.StatusNotFound, "not found"},
	labauth.CodeForbidden:          {http.StatusForbidden, "forbidden"},
	labauth.CodeSelfDeletion:       {http.StatusForbidden, "administrators cannot delete their own account here"},
	labauth.CodeInternal:           {http.StatusInternalServerError, "internal error"},
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	return codes[labauth.ErrorCode(err)].status
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := labauth.ErrorCode(err)
	info, ok := codes[code]
	if !ok {
		code = labauth.CodeInternal
		info = codes[code]
	}
	if info.status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err),
		)
	}
	writeJSON(w, info.status, errorBody{Code: code, Message: info.message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
