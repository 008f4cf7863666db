package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tsmarket/pkg/accesscontrol"
	"tsmarket/pkg/httpapi"
	"tsmarket/pkg/middleware"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func NewNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	return node
}

// NewRouter wires a gin engine the way the API process does, using the
// built-in access policy.
func NewRouter(t *testing.T, roles middleware.RoleResolver) *httpapi.Router {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(middleware.Error(), middleware.Identity())

	enforcer, err := accesscontrol.NewDefault()
	if err != nil {
		t.Fatalf("failed to build enforcer: %v", err)
	}

	return httpapi.NewRouter(httpapi.RouterParams{Engine: engine, Enforcer: enforcer, Roles: roles})
}

// Do performs a JSON request as userID (empty for anonymous).
func Do(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
