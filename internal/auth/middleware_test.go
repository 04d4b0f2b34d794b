package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(v Verifier, prov Provisioner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := gin.New()
	r.Use(Middleware(v, prov, logger))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": UID(c)})
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": UID(c)})
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareSetsUIDAndProvisions(t *testing.T) {
	var provisioned []string
	v := NewStaticVerifier(map[string]Profile{"tok": {UID: "alice"}})
	prov := ProvisionFunc(func(ctx context.Context, p Profile) error {
		provisioned = append(provisioned, p.UID)
		return nil
	})

	r := testRouter(v, prov)

	w := get(r, "/whoami", "tok")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"uid":"alice"`)
	assert.Equal(t, []string{"alice"}, provisioned)
}

func TestMiddlewareInvalidTokenPassesThroughUnauthenticated(t *testing.T) {
	v := NewStaticVerifier(map[string]Profile{"tok": {UID: "alice"}})
	r := testRouter(v, nil)

	w := get(r, "/whoami", "wrong")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"uid":""`)
}

func TestMiddlewareProvisioningFailureAborts(t *testing.T) {
	v := NewStaticVerifier(map[string]Profile{"tok": {UID: "alice"}})
	prov := ProvisionFunc(func(ctx context.Context, p Profile) error {
		return errors.New("store down")
	})
	r := testRouter(v, prov)

	w := get(r, "/whoami", "tok")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireAuth(t *testing.T) {
	v := NewStaticVerifier(map[string]Profile{"tok": {UID: "alice"}})
	r := testRouter(v, nil)

	w := get(r, "/private", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/private", "tok")
	assert.Equal(t, http.StatusOK, w.Code)
}
