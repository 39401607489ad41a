package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"learnlink-server/internal/domain"
	apperrors "learnlink-server/pkg/errors"
	"learnlink-server/pkg/logger"
)

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusTeapot, "nope")

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content type application/json, got %s", ct)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"success":false,"error":"nope"}` {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		authURL string
	}{
		{"validation", domain.NewValidationError("email", "is required"), http.StatusBadRequest, ""},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, ""},
		{"wrapped file not found", fmt.Errorf("load: %w", domain.ErrFileNotFound), http.StatusNotFound, ""},
		{"not processed", domain.ErrNotProcessed, http.StatusNotFound, ""},
		{"already exists", domain.ErrUserAlreadyExists, http.StatusBadRequest, ""},
		{"auth exchange", fmt.Errorf("%w: bad code", domain.ErrAuthExchange), http.StatusUnauthorized, ""},
		{"auth required", apperrors.NewAuthRequiredError("authorize first", "https://consent", nil), http.StatusUnauthorized, "https://consent"},
		{"external", apperrors.NewExternalServiceError("object store", errors.New("down")), http.StatusInternalServerError, ""},
		{"extraction", apperrors.NewExtractionError("corrupt pdf", nil), http.StatusBadRequest, ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg, authURL := errorStatus(tt.err)
			if status != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, status)
			}
			if msg == "" {
				t.Fatalf("expected a message")
			}
			if authURL != tt.authURL {
				t.Fatalf("expected auth url %q, got %q", tt.authURL, authURL)
			}
		})
	}
}

func TestWriteAppError_AuthURL(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/drive/files", nil)
	writeAppError(rr, logger.NewNop(), req, apperrors.NewAuthRequiredError("authorize first", "https://consent", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"authUrl":"https://consent"`) {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	var v emailBody
	var verr *domain.ValidationError

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := decodeJSON(req, &v); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for empty body, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	if err := decodeJSON(req, &v); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for malformed body, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@example.com"}`))
	if err := decodeJSON(req, &v); err != nil || v.Email != "a@example.com" {
		t.Fatalf("unexpected decode result %v %+v", err, v)
	}
}

func TestClientIP(t *testing.T) {
	proxies, invalid := parseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1", "not-an-ip"})
	if len(invalid) != 1 || invalid[0] != "not-an-ip" {
		t.Fatalf("expected one invalid entry, got %v", invalid)
	}

	tests := []struct {
		name      string
		peer      string
		forwarded string
		trusted   trustedProxies
		want      string
	}{
		{name: "socket address", peer: "10.0.0.1:5555", want: "10.0.0.1"},
		{name: "forwarded ignored without trust", peer: "198.51.100.4:5555", forwarded: "203.0.113.7", want: "198.51.100.4"},
		{name: "forwarded ignored from untrusted peer", peer: "198.51.100.4:5555", forwarded: "203.0.113.7", trusted: proxies, want: "198.51.100.4"},
		{name: "trusted proxy", peer: "10.0.0.1:5555", forwarded: "203.0.113.7", trusted: proxies, want: "203.0.113.7"},
		{name: "right-most untrusted hop", peer: "10.0.0.1:5555", forwarded: "1.2.3.4, 203.0.113.7, 192.0.2.1", trusted: proxies, want: "203.0.113.7"},
		{name: "malformed hop", peer: "10.0.0.1:5555", forwarded: "203.0.113.7, garbage", trusted: proxies, want: "10.0.0.1"},
		{name: "only proxies", peer: "10.0.0.1:5555", forwarded: "10.1.1.1", trusted: proxies, want: "10.0.0.1"},
		{name: "no port", peer: "10.0.0.1", want: "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.peer
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if ip := clientIP(req, tt.trusted); ip != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, ip)
			}
		})
	}
}
