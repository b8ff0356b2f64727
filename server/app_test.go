package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"homehub/config"
	"homehub/internal/middleware"
	"homehub/internal/models"
	"homehub/internal/notify"
	"homehub/internal/repo/mocks"
	"homehub/internal/wifi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(_ context.Context, ev notify.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterEndToEnd(t *testing.T) {
	store := new(mocks.StoreMock)
	sink := &recordingSink{}
	r := NewRouter(Deps{
		Store:    store,
		Notifier: notify.NewHub(sink),
		WiFi:     wifi.NewFileStore(filepath.Join(t.TempDir(), "wifi_credentials.txt")),
	})

	store.On("InsertDevice", mock.Anything, mock.MatchedBy(func(d *models.Device) bool {
		return d.DevicesID == "D1" && len(d.Equipments) == 8
	})).Return("65f0c0ffee", nil).Once()
	store.On("UpdateEquipmentState", mock.Anything, "D1", "1", "on").Return(true, nil).Once()

	rec := do(r, http.MethodPost, "/register_device", `{"devices_id":"D1","devices_name":"Hall","owner_id":"U1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"data saved successfully"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))

	rec = do(r, http.MethodPost, "/update_eqp", `{"devices_id":"D1","owner_id":"U1","house_id":"H1","floor_id":"F1","room_id":"R1",
		"house_name":"Home","floor_name":"Ground","room_name":"Hall","eqp_no":"1","eqp_name":"Light","eqp_state":"on"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Light equipment on successfully"}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/wifi", `{"ssid":"home","password":"pw"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	store.AssertExpectations(t)
	require.Len(t, sink.events, 2)
	assert.Equal(t, notify.KindDeviceRegistered, sink.events[0].Kind)
	assert.Equal(t, notify.KindEquipmentChanged, sink.events[1].Kind)
	assert.True(t, sink.events[1].Matched)
}

func TestRouterReadyz(t *testing.T) {
	store := new(mocks.StoreMock)
	store.On("Ping", mock.Anything).Return(nil).Once()
	store.On("Ping", mock.Anything).Return(errors.New("server selection timeout")).Once()

	r := NewRouter(Deps{Store: store})

	rec := do(r, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"store":"ok"}}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)
	store.AssertExpectations(t)
}

func TestRouterWithoutWiFi(t *testing.T) {
	r := NewRouter(Deps{Store: new(mocks.StoreMock)})
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/wifi", `{"ssid":"a","password":"b"}`).Code)
}

func TestRunNotInitialized(t *testing.T) {
	assert.ErrorIs(t, (&App{}).Run(), ErrNotInitialized)
}

func TestInitializeUnsupportedDriver(t *testing.T) {
	a := &App{}
	err := a.Initialize(&config.Config{Database: config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver: sqlite")
	assert.Nil(t, a.Router)
}
