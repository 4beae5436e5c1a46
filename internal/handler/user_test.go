package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"triplog/internal/domain"
	"triplog/internal/tests"
)

func newLoginRouter(users *tests.MockUserStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/users/login", NewUserHandler(users).Login)
	return router
}

func postLogin(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/users/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLogin_RejectsEmptyPassword(t *testing.T) {
	t.Parallel()

	users := tests.NewMockUserStore()
	// Accounts loaded from backends without credential material have an
	// empty stored password. An empty submission must not match it.
	users.AddUser(&domain.User{
		ID:        "1",
		FirstName: "Alice",
		LastName:  "Doe",
		Email:     "alice@example.com",
	})
	router := newLoginRouter(users)

	w := postLogin(router, `{"email": "alice@example.com", "password": ""}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for empty password, got %d", w.Code)
	}

	w = postLogin(router, `{"email": "alice@example.com"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for absent password, got %d", w.Code)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Parallel()

	users := tests.NewMockUserStore()
	users.AddUser(&domain.User{
		ID:       "1",
		Email:    "alice@example.com",
		Password: "secret",
	})
	router := newLoginRouter(users)

	w := postLogin(router, `{"email": "alice@example.com", "password": "wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", w.Code)
	}

	w = postLogin(router, `{"email": "nobody@example.com", "password": "secret"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown email, got %d", w.Code)
	}
}

func TestLogin_Succeeds(t *testing.T) {
	t.Parallel()

	users := tests.NewMockUserStore()
	users.AddUser(&domain.User{
		ID:        "1",
		FirstName: "Alice",
		LastName:  "Doe",
		Email:     "alice@example.com",
		Password:  "secret",
	})
	router := newLoginRouter(users)

	w := postLogin(router, `{"email": "Alice@Example.com", "password": "secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); strings.Contains(body, "secret") {
		t.Error("response must not echo the password")
	}
}
