package alphavantage_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	drepo "StockLens/internal/domain/repository"
	"StockLens/internal/service/alphavantage"
	xhttp "StockLens/pkg/http"
)

func TestFetchRaw_BuildsQuery(t *testing.T) {
	t.Parallel()

	// Arrange: a server that echoes back what it saw
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "TIME_SERIES_DAILY", r.URL.Query().Get("function"))
		require.Equal(t, "IBM", r.URL.Query().Get("symbol"))
		require.Equal(t, "k3y", r.URL.Query().Get("apikey"))
		require.Equal(t, "compact", r.URL.Query().Get("outputsize"))
		require.Equal(t, "json", r.URL.Query().Get("datatype"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	client := alphavantage.New(srv.URL, xhttp.NewClient(xhttp.WithTimeout(2*time.Second)))

	// Act
	payload, err := client.FetchRaw(t.Context(), drepo.RawQuery{
		Function:   "TIME_SERIES_DAILY",
		Symbol:     "IBM",
		APIKey:     "k3y",
		OutputSize: "compact",
	})

	// Assert
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, payload.StatusCode)
	require.JSONEq(t, `{"ok":true}`, string(payload.Body))
}

func TestFetchRaw_OmitsEmptyOutputSize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["outputsize"]
		require.False(t, present)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	client := alphavantage.New(srv.URL, nil)
	_, err := client.FetchRaw(t.Context(), drepo.RawQuery{Function: "OVERVIEW", Symbol: "IBM", APIKey: "k"})
	require.NoError(t, err)
}

func TestFetchRaw_NonSuccessStatusIsNotAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`slow down`))
	}))
	t.Cleanup(srv.Close)

	client := alphavantage.New(srv.URL, nil)
	payload, err := client.FetchRaw(t.Context(), drepo.RawQuery{Function: "TIME_SERIES_DAILY", Symbol: "IBM", APIKey: "k"})

	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, payload.StatusCode)
	require.Equal(t, "slow down", string(payload.Body))
}

func TestFetchRaw_ContextCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	client := alphavantage.New(srv.URL, nil)
	_, err := client.FetchRaw(ctx, drepo.RawQuery{Function: "TIME_SERIES_DAILY", Symbol: "IBM", APIKey: "k"})

	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestFetchRaw_BodyLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	t.Cleanup(srv.Close)

	client := alphavantage.New(srv.URL, xhttp.NewClient(xhttp.WithMaxBodyBytes(16)))
	_, err := client.FetchRaw(t.Context(), drepo.RawQuery{Function: "TIME_SERIES_DAILY", Symbol: "IBM", APIKey: "k"})
	require.Error(t, err)
}
