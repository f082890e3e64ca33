package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echospace/backend/internal/storage"
)

func postLobby(t *testing.T, h *Handler) *httptest.ResponseRecorder {
	t.Helper()
	token, err := generateJWT("p1")
	require.NoError(t, err)

	r := gin.New()
	r.POST("/lobbies", h.CreateLobby)

	req := httptest.NewRequest(http.MethodPost, "/lobbies", strings.NewReader(`{"name":"My Lobby"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// TestCreateLobbyRetriesOnCodeCollision: a taken join code mints a fresh one
// and tries again.
func TestCreateLobbyRetriesOnCodeCollision(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStorage()
	store.createLobbyErrs = []error{storage.ErrLobbyCodeTaken}
	h, _ := newTestHandler(store)

	w := postLobby(t, h)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, store.CreatedCodes(), 2, "one collision, one successful retry")
}

// TestCreateLobbyFailsFastOnStorageError: anything other than a code
// collision aborts immediately instead of burning retries against an outage.
func TestCreateLobbyFailsFastOnStorageError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStorage()
	store.createLobbyErrs = []error{assert.AnError}
	h, _ := newTestHandler(store)

	w := postLobby(t, h)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, store.CreatedCodes(), 1, "no retry on a non-collision error")
}
