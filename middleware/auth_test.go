package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"MeetChat/tools/security"

	"github.com/gin-gonic/gin"
)

func newAuthRouter(opts security.Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", Auth(opts), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return r
}

func TestAuthAcceptsValidBearer(t *testing.T) {
	opts := security.DefaultOptions([]byte("test-secret"))
	token, _, err := security.Generate(opts, "user-42")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthRouter(opts).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "user-42" {
		t.Fatalf("user id = %q", w.Body.String())
	}
}

func TestAuthRejectsMissingOrBadToken(t *testing.T) {
	opts := security.DefaultOptions([]byte("test-secret"))
	r := newAuthRouter(opts)

	for _, hdr := range []string{"", "Bearer ", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if hdr != "" {
			req.Header.Set("Authorization", hdr)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", hdr, w.Code)
		}
	}
}

func TestAuthRejectsForeignSecret(t *testing.T) {
	token, _, err := security.Generate(security.DefaultOptions([]byte("other")), "user-42")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthRouter(security.DefaultOptions([]byte("mine"))).ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
