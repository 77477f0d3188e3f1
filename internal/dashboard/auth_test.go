package dashboard

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	both := AuthConfig{BearerToken: "my-token", BasicUser: "admin", BasicPass: "pass123"}

	tests := []struct {
		name    string
		cfg     AuthConfig
		prepare func(r *http.Request)
		want    int
	}{
		{
			name:    "valid bearer",
			cfg:     AuthConfig{BearerToken: "secret-token"},
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-token") },
			want:    http.StatusOK,
		},
		{
			name:    "wrong bearer",
			cfg:     AuthConfig{BearerToken: "secret-token"},
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer wrong-token") },
			want:    http.StatusUnauthorized,
		},
		{
			name:    "bearer without prefix",
			cfg:     AuthConfig{BearerToken: "secret-token"},
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "secret-token") },
			want:    http.StatusUnauthorized,
		},
		{
			name:    "valid basic",
			cfg:     AuthConfig{BasicUser: "admin", BasicPass: "pass123"},
			prepare: func(r *http.Request) { r.SetBasicAuth("admin", "pass123") },
			want:    http.StatusOK,
		},
		{
			name:    "wrong basic password",
			cfg:     AuthConfig{BasicUser: "admin", BasicPass: "pass123"},
			prepare: func(r *http.Request) { r.SetBasicAuth("admin", "wrongpass") },
			want:    http.StatusUnauthorized,
		},
		{
			name:    "no header",
			cfg:     AuthConfig{BearerToken: "token"},
			prepare: func(*http.Request) {},
			want:    http.StatusUnauthorized,
		},
		{
			name:    "both configured, bearer used",
			cfg:     both,
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer my-token") },
			want:    http.StatusOK,
		},
		{
			name:    "both configured, basic used",
			cfg:     both,
			prepare: func(r *http.Request) { r.SetBasicAuth("admin", "pass123") },
			want:    http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := authMiddleware(tt.cfg, nil)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAuthConfig_IsConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  AuthConfig
		want bool
	}{
		{"empty", AuthConfig{}, false},
		{"bearer only", AuthConfig{BearerToken: "tok"}, true},
		{"basic complete", AuthConfig{BasicUser: "u", BasicPass: "p"}, true},
		{"basic partial user", AuthConfig{BasicUser: "u"}, false},
		{"basic partial pass", AuthConfig{BasicPass: "p"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}
