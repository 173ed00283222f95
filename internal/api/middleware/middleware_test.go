package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"maintenance-tracker/config"
	"maintenance-tracker/pkg/jwt"
	"maintenance-tracker/pkg/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "0123456789abcdef0123"

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{JWTSecret: testSecret, Issuer: "maintenance-tracker"})
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redis.NewFromClient(rdb, zap.NewNop())
}

// whoami 回显 JWTAuth 注入的上下文
func whoami(c *gin.Context) {
	c.String(http.StatusOK, c.GetString("username")+"|"+c.GetString("name")+"|"+c.GetString("role"))
}

func doRequest(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth_InjectsCaller(t *testing.T) {
	mgr := newTestJWT()
	token, err := mgr.GenerateAccessToken("ana.souza", "Ana Souza", "planner")
	if err != nil {
		t.Fatalf("生成 Token 失败: %v", err)
	}

	r := gin.New()
	r.GET("/me", JWTAuth(mgr, nil), whoami)
	w := doRequest(r, "GET", "/me", token)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "ana.souza|Ana Souza|planner" {
		t.Errorf("unexpected caller %q", w.Body.String())
	}
}

func TestJWTAuth_Rejects(t *testing.T) {
	other := jwt.NewManager(&config.AuthConfig{JWTSecret: "another-secret-0123456", Issuer: "maintenance-tracker"})
	foreign, _ := other.GenerateAccessToken("x", "X", "admin")

	r := gin.New()
	r.GET("/me", JWTAuth(newTestJWT(), nil), whoami)

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"garbage":      "Bearer not-a-token",
		"wrong secret": "Bearer " + foreign,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestJWTAuth_Blacklisted(t *testing.T) {
	mgr := newTestJWT()
	rdb := newTestRedis(t)
	token, _ := mgr.GenerateAccessToken("ana.souza", "Ana Souza", "admin")
	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("解析 Token 失败: %v", err)
	}

	r := gin.New()
	r.GET("/me", JWTAuth(mgr, rdb), whoami)

	if w := doRequest(r, "GET", "/me", token); w.Code != http.StatusOK {
		t.Fatalf("expected 200 before revocation, got %d", w.Code)
	}
	if err := rdb.BlacklistToken(context.Background(), claims.ID, time.Minute); err != nil {
		t.Fatalf("加入黑名单失败: %v", err)
	}
	if w := doRequest(r, "GET", "/me", token); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after revocation, got %d", w.Code)
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	mgr := newTestJWT()
	admin, _ := mgr.GenerateAccessToken("a", "A", "admin")
	tech, _ := mgr.GenerateAccessToken("t", "T", "technician")

	r := gin.New()
	r.DELETE("/x", JWTAuth(mgr, nil), RoleAuth("admin"), whoami)

	if w := doRequest(r, "DELETE", "/x", admin); w.Code != http.StatusOK {
		t.Errorf("admin expected 200, got %d", w.Code)
	}
	if w := doRequest(r, "DELETE", "/x", tech); w.Code != http.StatusForbidden {
		t.Errorf("technician expected 403, got %d", w.Code)
	}
}

// ── RateLimit ──

func TestRateLimit(t *testing.T) {
	rdb := newTestRedis(t)

	r := gin.New()
	r.GET("/imports", RateLimit(rdb, 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := doRequest(r, "GET", "/imports", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i, w.Code)
		}
	}
	if w := doRequest(r, "GET", "/imports", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}

func TestRateLimit_NilRedisPasses(t *testing.T) {
	r := gin.New()
	r.GET("/imports", RateLimit(nil, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		if w := doRequest(r, "GET", "/imports", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i, w.Code)
		}
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/", RequestID(), func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"reuses valid id", "abc-123_x.y", true},
		{"replaces empty", "", false},
		{"replaces injected newline", "abc\nlevel=error", false},
		{"replaces too long", strings.Repeat("a", requestIDMaxLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.incoming != "" {
				req.Header[http.CanonicalHeaderKey(requestIDHeader)] = []string{tt.incoming}
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got != w.Body.String() {
				t.Errorf("header %q and context %q differ", got, w.Body.String())
			}
			if tt.keep && got != tt.incoming {
				t.Errorf("expected %q to be kept, got %q", tt.incoming, got)
			}
			if !tt.keep && (got == tt.incoming || len(got) != 36) {
				t.Errorf("expected generated uuid, got %q", got)
			}
		})
	}
}

// ── BodyLimit ──

func TestBodyLimit_DeclaredLength(t *testing.T) {
	r := gin.New()
	r.POST("/", BodyLimit(8), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("POST", "/", strings.NewReader("0123456789"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

// ── CORS ──

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("origin not allowed: %v", w.Header())
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
		t.Error("Content-Disposition should be exposed for downloads")
	}
}
