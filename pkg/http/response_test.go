package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type chartQuery struct {
	Symbol   string `param:"symbol" validate:"required,max=5"`
	Interval string `query:"interval" default:"daily" validate:"oneof=daily weekly"`
	From     string `query:"from" validate:"omitempty,datetime=2006-01-02"`
}

func newContext(t *testing.T, target string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		c.SetParamNames("symbol")
		c.SetParamValues(params...)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestReadAndValidateRequest(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		c, _ := newContext(t, "/x", "IBM")
		var q chartQuery
		require.Nil(t, ReadAndValidateRequest(c, &q))
		require.Equal(t, "IBM", q.Symbol)
		require.Equal(t, "daily", q.Interval)
	})

	t.Run("field names from tags", func(t *testing.T) {
		c, _ := newContext(t, "/x?interval=hourly&from=03-01-2024", "TOOLONG")
		var q chartQuery
		errs := ReadAndValidateRequest(c, &q)
		require.Len(t, errs, 3)

		byField := map[string]ValidationError{}
		for _, e := range errs {
			byField[e.Field] = e
		}
		require.Equal(t, "ERR_MAX", byField["symbol"].Code)
		require.Equal(t, "ERR_ONEOF", byField["interval"].Code)
		require.Equal(t, []string{"daily", "weekly"}, byField["interval"].Params["options"])
		require.Equal(t, "ERR_DATETIME", byField["from"].Code)
		require.Contains(t, byField["from"].Message, "2006-01-02")
	})
}

func TestAppErrorResponse(t *testing.T) {
	t.Run("app error keeps its status", func(t *testing.T) {
		c, rec := newContext(t, "/x")
		err := TooManyRequestsError("slow down").WithParam("retry_after_seconds", 3)
		require.NoError(t, AppErrorResponse(c, err))

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "3", rec.Header().Get("Retry-After"))
		body := decode(t, rec)
		require.EqualValues(t, http.StatusTooManyRequests, body["status"])
		data := body["data"].([]interface{})
		require.Equal(t, "ERR_RATE_LIMITED", data[0].(map[string]interface{})["code"])
	})

	t.Run("wrapped app error", func(t *testing.T) {
		c, rec := newContext(t, "/x")
		inner := GatewayTimeoutError("too slow")
		require.NoError(t, AppErrorResponse(c, errors.Join(errors.New("ctx"), inner)))
		require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("plain error is a 500", func(t *testing.T) {
		c, rec := newContext(t, "/x")
		require.NoError(t, AppErrorResponse(c, errors.New("boom")))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "Something went wrong", decode(t, rec)["data"])
	})
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp")
	err := BadGatewayError("upstream failed").WithError(cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "upstream failed: dial tcp", err.Error())
	require.Equal(t, http.StatusServiceUnavailable, ServiceUnavailableError("x").Status)
	require.Equal(t, "ERR_NOT_FOUND", NotFoundErrorf("no %s", "IBM").Code)
}
