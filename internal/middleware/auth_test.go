package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"learnsphere/internal/models"

	"github.com/gin-gonic/gin"
)

type fakeVerifier struct {
	claims *models.Claims
}

func (f fakeVerifier) VerifyToken(token string) (*models.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return f.claims, nil
}

func newRouter(roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	verifier := fakeVerifier{claims: &models.Claims{UserID: "u1", Name: "Ada", Role: models.RoleInstructor}}
	r.GET("/me", Authenticate(verifier), func(c *gin.Context) {
		session, _ := SessionFrom(c)
		c.String(http.StatusOK, session.UserID)
	})
	r.GET("/gated", Authenticate(verifier), RoleRequired(roles...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	r := newRouter()

	testCases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Errorf("Expected %d, got %d", tc.status, w.Code)
			}
			if tc.status == http.StatusOK && w.Body.String() != "u1" {
				t.Errorf("Expected session user u1, got %q", w.Body.String())
			}
		})
	}
}

func TestRoleRequired(t *testing.T) {
	testCases := []struct {
		name   string
		roles  []models.Role
		status int
	}{
		{"role matches", []models.Role{models.RoleInstructor}, http.StatusNoContent},
		{"role missing", []models.Role{models.RoleLearner}, http.StatusForbidden},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(tc.roles...)
			req := httptest.NewRequest(http.MethodGet, "/gated", nil)
			req.Header.Set("Authorization", "Bearer good")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Errorf("Expected %d, got %d", tc.status, w.Code)
			}
		})
	}
}

func TestAdminAlwaysPasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	verifier := fakeVerifier{claims: &models.Claims{UserID: "root", Role: models.RoleAdmin}}
	r.GET("/gated", Authenticate(verifier), RoleRequired(models.RoleInstructor), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/gated", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected admin to pass, got %d", w.Code)
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	verifier := fakeVerifier{claims: &models.Claims{UserID: "u1", Role: models.RoleLearner}}
	r.GET("/catalogue", OptionalAuthenticate(verifier), func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, session.UserID)
	})

	testCases := []struct {
		header string
		body   string
	}{
		{"", "anonymous"},
		{"Bearer nope", "anonymous"},
		{"Bearer good", "u1"},
	}
	for _, tc := range testCases {
		req := httptest.NewRequest(http.MethodGet, "/catalogue", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != tc.body {
			t.Errorf("Header %q: expected 200 %q, got %d %q", tc.header, tc.body, w.Code, w.Body.String())
		}
	}
}
