package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apphttp "lmaalem_backend/internal/http"
	"lmaalem_backend/platform/logger"
)

type stubConfig struct{}

func (stubConfig) GetHTTPAddr() string      { return ":0" }
func (stubConfig) GetCORSAllowAll() bool    { return true }
func (stubConfig) GetCORSOrigins() []string { return nil }
func (stubConfig) GetCORSAllowCreds() bool  { return false }

type stubModule struct{}

func (stubModule) Name() string { return "stub" }

func (stubModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/notify/test-call", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  stubConfig{},
		Logger:  logger.New("development"),
		Modules: []apphttp.Module{stubModule{}},
	})
}

func TestRouter_WrongMethodReturns405(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notify/test-call", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET on a POST-only route, got %d", rec.Code)
	}
}

func TestRouter_UnknownRouteReturns404(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown route, got %d", rec.Code)
	}
}

func TestRouter_HealthRoute(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health with no checker wired, got %d", rec.Code)
	}
}
