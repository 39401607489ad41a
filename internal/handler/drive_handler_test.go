package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriveHandler_AuthURLAndStatus(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/drive/auth/status?email=ada@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, "unauthenticated", body["state"])

	rr = doJSON(t, router, http.MethodGet, "/api/drive/auth/url?email=ada@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	authURL, _ := decodeBody(t, rr)["auth_url"].(string)
	assert.Contains(t, authURL, "client_id=test-client")
	assert.Contains(t, authURL, "access_type=offline")

	rr = doJSON(t, router, http.MethodGet, "/api/drive/auth/status?email=ada@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pending", decodeBody(t, rr)["state"])

	rr = doJSON(t, router, http.MethodGet, "/api/drive/auth/status", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDriveHandler_FilesRequireAuthorization(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/drive/files?email=ada@example.com", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["authUrl"], "client_id=test-client")

	rr = doJSON(t, router, http.MethodGet, "/api/drive/files", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, "/api/drive/delete/abc?email=ada@example.com", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDriveHandler_Logout(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/drive/auth/logout", map[string]string{"email": "ada@example.com"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodPost, "/api/drive/auth/logout", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDriveHandler_CallbackWithoutCode(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/oauth2callback?state=nope", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code, rr.Body.String())
	assert.Equal(t, false, decodeBody(t, rr)["success"])
}

func TestDriveHandler_CallbackRedirectsToFrontend(t *testing.T) {
	c := newTestContainer(t, map[string]string{"FRONTEND_URL": "http://localhost:5173/dashboard"})
	router := NewRouter(c)

	rr := doJSON(t, router, http.MethodGet, "/oauth2callback?error=access_denied", nil)
	require.Equal(t, http.StatusFound, rr.Code)
	loc := rr.Header().Get("Location")
	assert.Contains(t, loc, "http://localhost:5173/dashboard?")
	assert.Contains(t, loc, "auth=error")

	rr = doJSON(t, router, http.MethodGet, "/oauth2callback", nil)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "auth=error")
}

func TestDriveHandler_CallbackRejectsForgedState(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/oauth2callback?code=stolen-code&state=forged", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "state")
}
