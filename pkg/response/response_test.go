package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/windfall/fluentmind/internal/errors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]interface{}{"hello": "world"}, body["data"])
	assert.NotContains(t, body, "error")
	assert.NotContains(t, body, "meta")
}

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []int{1, 2}, &Meta{Limit: 20, Offset: 0, Count: 2})

	body := decode(t, rec)
	assert.Equal(t, map[string]interface{}{"limit": 20.0, "offset": 0.0, "count": 2.0}, body["meta"])
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      interface{}
		wantCode string
		wantMsg  string
	}{
		{name: "body", err: &ErrorBody{Code: "X", Message: "y"}, wantCode: "X", wantMsg: "y"},
		{name: "error", err: errors.New("boom"), wantCode: "ERROR", wantMsg: "boom"},
		{name: "string", err: "plain", wantCode: "ERROR", wantMsg: "plain"},
		{name: "other", err: 42, wantCode: "UNKNOWN_ERROR", wantMsg: "An unknown error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, http.StatusTeapot, tt.err)

			assert.Equal(t, http.StatusTeapot, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			errBody := body["error"].(map[string]interface{})
			assert.Equal(t, tt.wantCode, errBody["code"])
			assert.Equal(t, tt.wantMsg, errBody["message"])
		})
	}
}

func TestFailure(t *testing.T) {
	cause := errors.New("dial tcp: refused")

	t.Run("app error hides cause", func(t *testing.T) {
		rec := httptest.NewRecorder()
		status := Failure(rec, apperrors.Store("failed to record", cause), false)

		assert.Equal(t, http.StatusInternalServerError, status)
		errBody := decode(t, rec)["error"].(map[string]interface{})
		assert.Equal(t, "STORE_FAILURE", errBody["code"])
		assert.Equal(t, "failed to record", errBody["message"])
		assert.NotContains(t, errBody, "details")
	})

	t.Run("app error exposes cause", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Failure(rec, apperrors.Upstream("transcription failed", cause), true)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		errBody := decode(t, rec)["error"].(map[string]interface{})
		assert.Equal(t, map[string]interface{}{"cause": "dial tcp: refused"}, errBody["details"])
	})

	t.Run("details kept", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Failure(rec, apperrors.UnsupportedMedia("bad").WithDetails(map[string]interface{}{"content_type": "image/png"}), false)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		errBody := decode(t, rec)["error"].(map[string]interface{})
		assert.Equal(t, "image/png", errBody["details"].(map[string]interface{})["content_type"])
	})

	t.Run("plain error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		status := Failure(rec, cause, false)

		assert.Equal(t, http.StatusInternalServerError, status)
		errBody := decode(t, rec)["error"].(map[string]interface{})
		assert.Equal(t, "INTERNAL_ERROR", errBody["code"])
		assert.Equal(t, "internal server error", errBody["message"])
	})
}
