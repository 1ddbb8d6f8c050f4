package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/smazurov/pinnode/internal/api/models"
	"github.com/smazurov/pinnode/internal/logging"
	"github.com/smazurov/pinnode/internal/systemd"
	"github.com/smazurov/pinnode/internal/updater"
	"golang.org/x/crypto/bcrypt"
)

func newTestAPI(t *testing.T, opts *Options) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	newServer(api, opts)
	return api
}

func basicAuth(user, pass string) string {
	return "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, &Options{Board: "sim", LED: "none"})

	resp := api.Get("/api/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Code, resp.Body.String())
	}
	body := decode[models.HealthData](t, resp)
	if body.Status != "ok" || body.Board != "sim" || body.LED != "none" {
		t.Errorf("body = %+v", body)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestVersion(t *testing.T) {
	api := newTestAPI(t, &Options{})
	resp := api.Get("/api/version")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"version":"dev"`) {
		t.Errorf("body = %s", resp.Body.String())
	}
}

func TestPins(t *testing.T) {
	api := newTestAPI(t, &Options{Routes: []string{"/gpio/15/on", "/joystick"}})

	body := decode[models.PinsData](t, api.Get("/api/pins"))
	if len(body.Allowed) != 26 || body.Allowed[0] != 0 || body.Allowed[25] != 25 {
		t.Errorf("allowed = %v", body.Allowed)
	}
	for _, p := range []int{26, 27, 28} {
		if slices.Contains(body.Allowed, p) {
			t.Errorf("reserved pin %d in allow-list", p)
		}
		if !slices.Contains(body.Reserved, p) {
			t.Errorf("pin %d missing from reserved", p)
		}
	}
	if !slices.Equal(body.Routes, []string{"/gpio/15/on", "/joystick"}) {
		t.Errorf("routes = %v", body.Routes)
	}
}

func TestBasicAuth(t *testing.T) {
	api := newTestAPI(t, &Options{AuthUsername: "admin", AuthPassword: "s3cret"})

	tests := []struct {
		name   string
		path   string
		header []any
		want   int
	}{
		{"public health", "/api/health", nil, http.StatusOK},
		{"logs without credentials", "/api/logs", nil, http.StatusUnauthorized},
		{"logs wrong password", "/api/logs", []any{basicAuth("admin", "nope")}, http.StatusUnauthorized},
		{"logs bearer", "/api/logs", []any{"Authorization: Bearer abc"}, http.StatusUnauthorized},
		{"logs valid", "/api/logs", []any{basicAuth("admin", "s3cret")}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.Get(tt.path, tt.header...)
			if resp.Code != tt.want {
				t.Errorf("status = %d, want %d", resp.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && resp.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestLogs(t *testing.T) {
	buf := logging.GetBuffer()
	now := time.Now()
	buf.Write(logging.LogEntry{Timestamp: now, Level: "info", Module: "apitest", Message: "first"})
	buf.Write(logging.LogEntry{Timestamp: now, Level: "warn", Module: "apitest", Message: "second"})
	buf.Write(logging.LogEntry{Timestamp: now, Level: "error", Module: "apitest", Message: "third"})
	buf.Write(logging.LogEntry{Timestamp: now, Level: "error", Module: "other", Message: "elsewhere"})

	api := newTestAPI(t, &Options{})

	tests := []struct {
		query string
		want  []string
	}{
		{"?module=apitest&limit=0", []string{"first", "second", "third"}},
		{"?module=apitest&level=warn", []string{"second", "third"}},
		{"?module=apitest&limit=1", []string{"third"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := api.Get("/api/logs" + tt.query)
			if resp.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", resp.Code, resp.Body.String())
			}
			body := decode[models.LogsData](t, resp)
			var got []string
			for _, e := range body.Entries {
				got = append(got, e.Message)
			}
			if !slices.Equal(got, tt.want) || body.Count != len(tt.want) {
				t.Errorf("messages = %v (count %d), want %v", got, body.Count, tt.want)
			}
		})
	}

	if resp := api.Get("/api/logs?level=loud"); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid level status = %d, want 422", resp.Code)
	}
}

type fakeSystemd struct {
	status systemd.UnitStatus
	err    error
}

func (f fakeSystemd) UnitStatus(_ context.Context, _ string) (systemd.UnitStatus, error) {
	return f.status, f.err
}

func TestSystemdStatus(t *testing.T) {
	since := time.Date(2025, 1, 27, 10, 30, 0, 0, time.UTC)
	api := newTestAPI(t, &Options{Systemd: fakeSystemd{status: systemd.UnitStatus{
		ActiveState: "active",
		SubState:    "running",
		MainPID:     412,
		ActiveSince: since,
	}}})
	body := decode[models.SystemdServiceStatus](t, api.Get("/api/systemd/status"))
	if body.Service != "pinnode.service" || body.Status != "active" || body.SubState != "running" || body.MainPID != 412 {
		t.Errorf("body = %+v", body)
	}
	if body.ActiveSince == nil || !body.ActiveSince.Equal(since) {
		t.Errorf("ActiveSince = %v", body.ActiveSince)
	}

	api = newTestAPI(t, &Options{Systemd: fakeSystemd{status: systemd.UnitStatus{ActiveState: "inactive"}}})
	if body := decode[models.SystemdServiceStatus](t, api.Get("/api/systemd/status")); body.ActiveSince != nil {
		t.Errorf("inactive unit has ActiveSince %v", body.ActiveSince)
	}

	api = newTestAPI(t, &Options{Systemd: fakeSystemd{err: errors.New("no bus")}})
	if resp := api.Get("/api/systemd/status"); resp.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.Code)
	}

	api = newTestAPI(t, &Options{})
	if resp := api.Get("/api/systemd/status"); resp.Code != http.StatusNotFound {
		t.Errorf("status without systemd = %d, want 404", resp.Code)
	}
}

type fakeUpdater struct {
	enabled  bool
	reason   string
	checkErr error
	applyErr error
}

func (f *fakeUpdater) CheckForUpdate(context.Context) (*updater.UpdateInfo, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return &updater.UpdateInfo{CurrentVersion: "1.0.0", LatestVersion: "1.1.0", UpdateAvailable: true}, nil
}
func (f *fakeUpdater) ApplyUpdate(context.Context) error { return f.applyErr }
func (f *fakeUpdater) Rollback(context.Context) error {
	return &updater.Error{Code: updater.ErrCodeNoBackup, Message: "no backup available for rollback"}
}
func (f *fakeUpdater) GetStatus(context.Context) *updater.Status {
	return &updater.Status{State: updater.StateIdle, CurrentVersion: "1.0.0"}
}
func (f *fakeUpdater) IsEnabled() bool        { return f.enabled }
func (f *fakeUpdater) DisabledReason() string { return f.reason }

func TestUpdateRoutes(t *testing.T) {
	api := newTestAPI(t, &Options{UpdateService: &fakeUpdater{
		enabled:  true,
		applyErr: &updater.Error{Code: updater.ErrCodeInvalidState, Message: "busy"},
	}})

	check := decode[updater.UpdateInfo](t, api.Get("/api/update/check"))
	if !check.UpdateAvailable || check.LatestVersion != "1.1.0" {
		t.Errorf("check = %+v", check)
	}

	status := decode[updater.Status](t, api.Get("/api/update/status"))
	if status.State != "idle" {
		t.Errorf("status = %+v", status)
	}

	if resp := api.Post("/api/update/apply"); resp.Code != http.StatusConflict {
		t.Errorf("apply status = %d, want 409", resp.Code)
	}

	ok := newTestAPI(t, &Options{UpdateService: &fakeUpdater{enabled: true}})
	applied := decode[models.UpdateActionData](t, ok.Post("/api/update/apply"))
	if applied.Message != "Update applied" || applied.Status == nil || applied.Status.CurrentVersion != "1.0.0" {
		t.Errorf("apply = %+v", applied)
	}
	if resp := api.Post("/api/update/rollback"); resp.Code != http.StatusNotFound {
		t.Errorf("rollback status = %d, want 404", resp.Code)
	}
}

func TestUpdateRoutesDisabled(t *testing.T) {
	api := newTestAPI(t, &Options{UpdateService: &fakeUpdater{reason: "read-only filesystem"}})

	resp := api.Get("/api/update/check")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.Code)
	}
	if resp := api.Post("/api/update/rollback"); resp.Code != http.StatusServiceUnavailable {
		t.Errorf("rollback status = %d, want 503", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "read-only filesystem") {
		t.Errorf("body = %s", resp.Body.String())
	}
}

func TestMapUpdateError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&updater.Error{Code: updater.ErrCodeInvalidState}, http.StatusConflict},
		{&updater.Error{Code: updater.ErrCodeNoUpdate}, http.StatusBadRequest},
		{&updater.Error{Code: updater.ErrCodeNotFound}, http.StatusNotFound},
		{&updater.Error{Code: updater.ErrCodeNoBackup}, http.StatusNotFound},
		{&updater.Error{Code: updater.ErrCodeDisabled}, http.StatusServiceUnavailable},
		{&updater.Error{Code: updater.ErrCodeApplyFailed}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		var se interface{ GetStatus() int }
		if !errors.As(mapUpdateError(tt.err), &se) {
			t.Fatalf("mapUpdateError(%v) has no status", tt.err)
		}
		if se.GetStatus() != tt.want {
			t.Errorf("mapUpdateError(%v) = %d, want %d", tt.err, se.GetStatus(), tt.want)
		}
	}
}

func TestNewServerMux(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pinnode_requests_total 1\n"))
	})
	s := NewServer(&Options{MetricsHandler: metrics})

	tests := []struct {
		method string
		path   string
		want   int
		body   string
	}{
		{http.MethodGet, "/metrics", http.StatusOK, "pinnode_requests_total"},
		{http.MethodGet, "/api/health", http.StatusOK, `"status":"ok"`},
		{http.MethodOptions, "/api/logs", http.StatusNoContent, ""},
		{http.MethodGet, "/openapi.json", http.StatusOK, "/api/pins"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if !strings.Contains(w.Body.String(), tt.body) {
				t.Errorf("body missing %q", tt.body)
			}
		})
	}
}

func TestStop(t *testing.T) {
	s := NewServer(&Options{})
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() before Start = %v", err)
	}
}

func TestBasicAuthBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	api := newTestAPI(t, &Options{AuthUsername: "admin", AuthPassword: string(hash)})

	if resp := api.Get("/api/logs", basicAuth("admin", "s3cret")); resp.Code != http.StatusOK {
		t.Errorf("valid password status = %d, want 200", resp.Code)
	}
	if resp := api.Get("/api/logs", basicAuth("admin", string(hash))); resp.Code != http.StatusUnauthorized {
		t.Errorf("hash as password status = %d, want 401", resp.Code)
	}
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		method string
		status int
		want   slog.Level
	}{
		{http.MethodGet, http.StatusOK, slog.LevelDebug},
		{http.MethodOptions, http.StatusNoContent, slog.LevelDebug},
		{http.MethodPost, http.StatusOK, slog.LevelInfo},
		{http.MethodGet, http.StatusUnauthorized, slog.LevelWarn},
		{http.MethodPost, http.StatusServiceUnavailable, slog.LevelError},
	}

	for _, tt := range tests {
		if got := requestLevel(tt.method, tt.status); got != tt.want {
			t.Errorf("requestLevel(%s, %d) = %v, want %v", tt.method, tt.status, got, tt.want)
		}
	}
}
