package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"learnlink-server/internal/domain"
	apperrors "learnlink-server/pkg/errors"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	AuthURL string `json:"authUrl,omitempty"`
}

// writeJSON writes data as the JSON response body
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

// errorStatus maps an error onto its HTTP status, client message and optional consent URL
func errorStatus(err error) (int, string, string) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Error(), ""
	}
	if appErr, ok := apperrors.As(err); ok {
		return apperrors.GetStatusCode(appErr), appErr.ClientMessage(), appErr.AuthURL
	}

	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrFileNotFound),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNotProcessed):
		return http.StatusNotFound, err.Error(), ""
	case errors.Is(err, domain.ErrUserAlreadyExists),
		errors.Is(err, domain.ErrInvalidLearningStyle),
		errors.Is(err, domain.ErrUnsupportedFileType),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusBadRequest, err.Error(), ""
	case errors.Is(err, domain.ErrAuthExchange), errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, err.Error(), ""
	default:
		return http.StatusInternalServerError, err.Error(), ""
	}
}

// writeAppError translates err into a status and an error body. Server errors are logged.
func writeAppError(w http.ResponseWriter, log domain.Logger, r *http.Request, err error) {
	status, msg, authURL := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", err, "method", r.Method, "path", r.URL.Path)
	}
	writeJSON(w, status, errorResponse{Error: msg, AuthURL: authURL})
}

// decodeJSON reads the request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("", "no data provided")
		}
		return domain.NewValidationError("", "invalid request body")
	}
	return nil
}

// emailBody is the request body of the many endpoints keyed by email alone
type emailBody struct {
	Email string `json:"email"`
}

// writeAttachment streams a downloaded object
func writeAttachment(w http.ResponseWriter, name, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// trustedProxies lists the peers allowed to report the client address through X-Forwarded-For
type trustedProxies []netip.Prefix

// parseTrustedProxies accepts bare addresses or CIDRs and returns the entries it could not parse
func parseTrustedProxies(entries []string) (trustedProxies, []string) {
	var out trustedProxies
	var invalid []string
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				invalid = append(invalid, entry)
				continue
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			invalid = append(invalid, entry)
			continue
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, invalid
}

func (t trustedProxies) contains(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the socket peer. When the peer is a trusted proxy it walks
// X-Forwarded-For from the right and returns the first hop that is not trusted.
func clientIP(r *http.Request, trusted trustedProxies) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !trusted.contains(peer) {
		return peer
	}

	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(header, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if _, err := netip.ParseAddr(hop); err != nil {
			return peer
		}
		if !trusted.contains(hop) {
			return hop
		}
	}
	return peer
}
