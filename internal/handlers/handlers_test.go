package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"treasury/internal/middleware"
	"treasury/internal/models"
	"treasury/internal/validator"
)

const (
	testUserID     = "0192f0c6-0000-7000-8000-00000000a11c"
	testBoutiqueID = "0192f0c6-0000-7000-8000-0000000000b0"
	testFlowID     = "0192f0c6-0000-7000-8000-0000000000f1"
	testAccountID  = "0192f0c6-0000-7000-8000-0000000000a1"
	testAccount2ID = "0192f0c6-0000-7000-8000-0000000000a2"
	testCategoryID = "0192f0c6-0000-7000-8000-0000000000c1"
	testTemplateID = "0192f0c6-0000-7000-8000-0000000000e1"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectActor(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, testUserID)
		c.Set(middleware.RoleKey, role)
		c.Set(middleware.BoutiqueIDKey, testBoutiqueID)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %s, got %v", code, errObj["code"])
	}
}
