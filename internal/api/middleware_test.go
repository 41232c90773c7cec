package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/venuewatch-core/internal/auth"
	"github.com/nerrad567/venuewatch-core/internal/device"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/config"
)

func withAuth(d *Deps) {
	d.Security.Auth = config.AuthConfig{
		Enabled: true,
		JWT:     config.JWTConfig{Secret: testSecret, Issuer: "venuewatch"},
	}
}

func bearer(t *testing.T, role auth.Role) string {
	t.Helper()
	token, err := auth.GenerateToken("user-1", role, testSecret, "venuewatch", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return "Bearer " + token
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, withAuth)

	otherIssuer, err := auth.GenerateToken("user-1", auth.RoleAdmin, testSecret, "someone-else", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	wrongSecret, err := auth.GenerateToken("user-1", auth.RoleAdmin, "another-secret-of-sufficient-length", "venuewatch", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	create := createBody("tmd-1", "venue-a", device.DeviceTypeTMD)

	tests := []struct {
		name          string
		method, path  string
		body          any
		authorization string
		wantStatus    int
		wantCode      string
	}{
		{"health is public", http.MethodGet, "/api/v1/health", nil, "", http.StatusOK, ""},
		{"missing token", http.MethodGet, "/api/v1/devices", nil, "", http.StatusUnauthorized, ErrCodeUnauthorized},
		{"not bearer", http.MethodGet, "/api/v1/devices", nil, "Basic abc", http.StatusUnauthorized, ErrCodeUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/devices", nil, "Bearer not-a-jwt", http.StatusUnauthorized, ErrCodeUnauthorized},
		{"wrong issuer", http.MethodGet, "/api/v1/devices", nil, "Bearer " + otherIssuer, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"wrong secret", http.MethodGet, "/api/v1/devices", nil, "Bearer " + wrongSecret, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"viewer reads devices", http.MethodGet, "/api/v1/devices", nil, bearer(t, auth.RoleViewer), http.StatusOK, ""},
		{"viewer reads alerts", http.MethodGet, "/api/v1/alerts/org-1", nil, bearer(t, auth.RoleViewer), http.StatusOK, ""},
		{"viewer cannot create", http.MethodPost, "/api/v1/devices", create, bearer(t, auth.RoleViewer), http.StatusForbidden, ErrCodeForbidden},
		{"admin creates", http.MethodPost, "/api/v1/devices", create, bearer(t, auth.RoleAdmin), http.StatusCreated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var header []string
			if tt.authorization != "" {
				header = []string{"Authorization", tt.authorization}
			}
			rec := env.do(t, tt.method, tt.path, tt.body, header...)
			expectStatus(t, rec, tt.wantStatus)
			if tt.wantCode != "" {
				if e := errorOf(t, rec); e.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
				}
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Security.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}
	})

	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodGet, "/api/v1/organizations", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/v1/organizations", nil)
	expectStatus(t, rec, http.StatusTooManyRequests)
	if e := errorOf(t, rec); e.Code != ErrCodeRateLimited {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeRateLimited)
	}

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	env.handler.ServeHTTP(other, req)
	expectStatus(t, other, http.StatusOK)
}

func TestRateLimiterSweep(t *testing.T) {
	rl := newRateLimiter(60, 1)

	if !rl.allow("a") {
		t.Fatal("allow(a) = false on first request")
	}
	if rl.allow("a") {
		t.Error("allow(a) = true with an empty bucket")
	}
	rl.get("b")

	rl.sweep()
	if got := rl.size(); got != 1 {
		t.Errorf("size after sweep = %d, want 1 (only the idle client dropped)", got)
	}
}

func TestCORSMiddleware(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"https://dashboard.example"}
	})

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", http.MethodGet, "https://dashboard.example", http.StatusOK, "https://dashboard.example"},
		{"other origin", http.MethodGet, "https://evil.example", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "https://dashboard.example", http.StatusNoContent, "https://dashboard.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, "/api/v1/organizations", nil, "Origin", tt.origin)
			expectStatus(t, rec, tt.wantStatus)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/health", nil, "X-Request-ID", "req-42")
	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.server.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	expectStatus(t, rec, http.StatusInternalServerError)
	if e := errorOf(t, rec); e.Code != ErrCodeInternal {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeInternal)
	}
}

func TestClientMessage(t *testing.T) {
	err := device.Validate(&device.Device{DeviceType: device.DeviceTypeTMD, VenueID: "v"})
	if got := clientMessage(err, device.ErrInvalidDevice); got != "deviceId is required" {
		t.Errorf("clientMessage() = %q, want deviceId is required", got)
	}
}
