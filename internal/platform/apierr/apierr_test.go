package apierr

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	mysql "github.com/go-sql-driver/mysql"
)

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Invalid("x"), http.StatusBadRequest},
		{Unauthenticated("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{Conflict("x"), http.StatusConflict},
		{IllegalTransition("x"), http.StatusConflict},
		{Unprocessable("x"), http.StatusUnprocessableEntity},
		{Internal("x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("x")), http.StatusNotFound},
	}
	for _, tt := range tests {
		if got := ToHTTPStatus(tt.err); got != tt.want {
			t.Errorf("ToHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestFromDB(t *testing.T) {
	if !Is(FromDB(sql.ErrNoRows, "product not found"), CodeNotFound) {
		t.Error("ErrNoRows should map to NOT_FOUND")
	}
	if !Is(FromDB(&mysql.MySQLError{Number: 1062}, ""), CodeConflict) {
		t.Error("1062 should map to CONFLICT")
	}
	if !Is(FromDB(&mysql.MySQLError{Number: 1452}, ""), CodeInvalidArgument) {
		t.Error("1452 should map to INVALID_ARGUMENT")
	}
	if !Is(FromDB(Unprocessable("x"), ""), CodeUnprocessable) {
		t.Error("api errors should pass through")
	}
	if FromDB(nil, "") != nil {
		t.Error("nil should stay nil")
	}
}

func TestRespondLocalizes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(lang string) (int, map[string]map[string]string) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if lang != "" {
			c.Request.Header.Set("Accept-Language", lang)
		}
		Respond(c, NotFound("product not found"))
		var body map[string]map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return w.Code, body
	}

	code, body := run("")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d", code)
	}
	if body["error"]["code"] != "NOT_FOUND" || body["error"]["message"] != "ไม่พบอุปกรณ์" {
		t.Errorf("thai body = %v", body)
	}
	if body["error"]["detail"] != "product not found" {
		t.Errorf("detail = %q", body["error"]["detail"])
	}

	_, body = run("en")
	if body["error"]["message"] != "product not found" {
		t.Errorf("english body = %v", body)
	}
}

func TestRespondHidesUntypedErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Accept-Language", "en")

	Respond(c, errors.New("dial tcp 10.0.0.1:3306: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"]["code"] != "INTERNAL" || body["error"]["detail"] != "internal error" {
		t.Errorf("body = %v", body)
	}
}
