package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemedia-backend/internal/platform/apierr"
	"github.com/yungbote/coursemedia-backend/internal/platform/ctxutil"
)

func TestRespondAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err     error
		status  int
		code    string
		message string
	}{
		{fmt.Errorf("submit: %w", apierr.Conflict(apierr.CodeJobActive, errors.New("busy"))), http.StatusConflict, apierr.CodeJobActive, "busy"},
		{errors.New("db down"), http.StatusInternalServerError, apierr.CodeInternal, "db down"},
		{apierr.NotFound(apierr.CodeModuleNotFound, nil), http.StatusNotFound, apierr.CodeModuleNotFound, "unknown error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		RespondAPIError(c, tc.err)
		if rec.Code != tc.status {
			t.Fatalf("status: want=%d got=%d", tc.status, rec.Code)
		}
		var env ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Error.Code != tc.code || env.Error.Message != tc.message {
			t.Fatalf("envelope: want=%s/%s got=%+v", tc.code, tc.message, env.Error)
		}
	}
}

func TestRespondErrorCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodPost, "/api/instructor/modules/upload", nil)
	c.Request = req.WithContext(ctxutil.WithTraceData(req.Context(), &ctxutil.TraceData{RequestID: "req-7"}))

	RespondError(c, http.StatusBadRequest, apierr.CodeInvalidUpload, errors.New("no file part"))

	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.RequestID != "req-7" {
		t.Fatalf("request id: want=req-7 got=%q", env.Error.RequestID)
	}
	if !c.IsAborted() || len(c.Errors) != 1 {
		t.Fatalf("context: aborted=%v errors=%d", c.IsAborted(), len(c.Errors))
	}
}
