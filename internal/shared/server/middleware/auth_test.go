package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/shared/auth"
)

func newTestIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	iss, err := auth.NewIssuer("test-secret", "dev", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return iss
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequireAuth(newTestIssuer(t)))
	router.OPTIONS("/resume/retrieve/", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/resume/retrieve/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(OptionalAuth(newTestIssuer(t)))
	router.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFromContext(c))
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "" {
		t.Fatalf("expected anonymous 200, got %d %q", resp.Code, resp.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected invalid token rejected, got %d", resp.Code)
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := newTestIssuer(t)
	router := gin.New()
	router.Use(RequireAuth(iss), RequireRole("admin"))
	router.GET("/admin", func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFromContext(c))
	})

	tests := []struct {
		name string
		role string
		want int
	}{
		{name: "admin", role: "admin", want: http.StatusOK},
		{name: "user", role: "user", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tok, err := iss.IssueAccess(auth.Identity{UserID: "u1", Role: tt.role})
			if err != nil {
				t.Fatalf("issue: %v", err)
			}
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.Code)
			}
		})
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}
}
