package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/airguard/internal/config"
	"github.com/quocanhngo/airguard/internal/middleware"
	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/internal/repository"
	"github.com/quocanhngo/airguard/internal/service"
	"github.com/quocanhngo/airguard/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var dbSeq atomic.Int64

type stubRefresher struct {
	calls int
}

func (s *stubRefresher) Refresh(_ context.Context, d *model.Device, m *model.Measurement) (*model.StatusEvent, error) {
	s.calls++
	return &model.StatusEvent{DeviceUID: d.UID, DeviceName: d.DisplayName(), Reading: *m, MessageRef: "42"}, nil
}

type adminFixture struct {
	router       *gin.Engine
	jwt          *auth.JWTManager
	measurements *repository.MeasurementRepository
	refresher    *stubRefresher
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	path := fmt.Sprintf("file:handler_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := repository.Open(config.DBConfig{Driver: "sqlite", Path: path}, "production")
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &adminFixture{
		jwt:          auth.NewJWTManager("test-secret", time.Hour),
		measurements: repository.NewMeasurementRepository(db),
		refresher:    &stubRefresher{},
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	devices := service.NewDeviceService(repository.NewDeviceRepository(db), f.measurements, f.refresher, nil, bcrypt.MinCost)
	admin := service.NewAdminService("admin", string(hash), f.jwt, nil)

	f.router = gin.New()
	RegisterRoutes(f.router, NewDataHandler(&fakeIngester{}, f.measurements), NewAdminHandler(admin, devices), nil,
		middleware.AdminAuthMiddleware(f.jwt, nil))
	return f
}

func (f *adminFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *adminFixture) login(t *testing.T) string {
	t.Helper()
	w := f.do(http.MethodPost, "/api/v1/admin/login", "", `{"username":"admin","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.AdminLoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
	return resp.Token
}

func TestAdminLogin(t *testing.T) {
	f := newAdminFixture(t)

	w := f.do(http.MethodPost, "/api/v1/admin/login", "", `{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/v1/admin/login", "", `{"username":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.login(t)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	f := newAdminFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/admin/devices", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/admin/devices", "garbage", "").Code)

	viewer, _, err := f.jwt.GenerateToken("someone", "viewer")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/v1/admin/devices", viewer, "").Code)

	other := auth.NewJWTManager("another-secret", time.Hour)
	forged, _, err := other.GenerateToken("admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/admin/devices", forged, "").Code)
}

func TestAdminDeviceLifecycle(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	body := `{"uid":"lab-1","api_key":"device-secret","name":"Lab","geometry":{"length":6,"width":6,"height":4,"window_count":1,"window_width":1.2,"window_height":1.5,"opening_fraction":0.1},"latitude":45.8,"longitude":15.97}`
	w := f.do(http.MethodPost, "/api/v1/admin/devices", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.DeviceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "lab-1", created.UID)
	assert.Equal(t, 6.0, created.Geometry.Length)
	assert.Nil(t, created.LiveMessageRef)
	assert.NotContains(t, w.Body.String(), "device-secret")
	assert.NotContains(t, w.Body.String(), "credential")

	w = f.do(http.MethodPost, "/api/v1/admin/devices", token, body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPatch, "/api/v1/admin/devices/lab-1", token, `{"name":"Chemistry lab","api_key":"ignored"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.DeviceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Chemistry lab", updated.Name)
	assert.Equal(t, 6.0, updated.Geometry.Length)

	w = f.do(http.MethodPatch, "/api/v1/admin/devices/ghost", token, `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/v1/admin/devices", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.DeviceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Chemistry lab", list[0].Name)
}

func TestAdminRefresh(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	require.Equal(t, http.StatusCreated,
		f.do(http.MethodPost, "/api/v1/admin/devices", token, `{"uid":"lab-2","api_key":"device-secret"}`).Code)

	w := f.do(http.MethodPost, "/api/v1/admin/devices/lab-2/refresh", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code, "no measurement yet")
	assert.Zero(t, f.refresher.calls)

	require.NoError(t, f.measurements.Insert(context.Background(), &model.Measurement{
		DeviceUID: "lab-2", CO2: 1400, Temperature: 21, Humidity: 45,
	}))
	w = f.do(http.MethodPost, "/api/v1/admin/devices/lab-2/refresh", token, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var event model.StatusEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
	assert.Equal(t, "42", event.MessageRef)
	assert.Equal(t, 1400, event.Reading.CO2)
	assert.Equal(t, 1, f.refresher.calls)
}

func TestAdminExport(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	w := f.do(http.MethodPost, "/api/v1/admin/devices/lab-1/export?from=2024-01-02T00:00:00Z&to=2024-01-01T00:00:00Z", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/admin/devices/lab-1/export?from=yesterday", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// no archive configured
	w = f.do(http.MethodPost, "/api/v1/admin/devices/lab-1/export", token, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminLogoutWithoutRedis(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	w := f.do(http.MethodPost, "/api/v1/admin/logout", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
