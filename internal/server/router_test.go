package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chat-service/internal/auth"
	"github.com/chatwire/chat-service/internal/ws"
)

func TestRouter_ServesUploadsUnderConfiguredBase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi"), 0o644))

	logger := logrus.New()
	validate := validator.New()
	verifier := auth.NewVerifier("test-secret", time.Hour)

	router := NewRouter(
		NewAuthHandler(nil, validate, logger),
		NewChatsHandler(nil, nil, nil, validate, logger),
		NewGroupsHandler(nil, validate, logger),
		&ws.Gateway{},
		verifier,
		dir,
		"/media",
		logger,
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/hello.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/hello.txt", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "default base should not answer when reconfigured")
}
