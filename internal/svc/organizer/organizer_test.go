package organizer_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/italolelis/organizer_hook/internal/logctx"
	"github.com/italolelis/organizer_hook/internal/svc/organizer"
	"github.com/italolelis/organizer_hook/internal/svc/organizer/organizertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var item = organizer.Item{Dir: "/downloads/complete", Name: "Some.Movie.2021.1080p.WEB-DL.x265"}

func TestTriggerScan_Acknowledged(t *testing.T) {
	srv := organizertest.NewServer(t, organizertest.OK)
	client := organizer.NewClient(srv.ScanURL())

	status, err := client.TriggerScan(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Empty(t, calls[0].Body)
	assert.NotEmpty(t, calls[0].RequestID)
	assert.Empty(t, calls[0].TorrentName, "item headers are opt-in")
}

func TestTriggerScan_StatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		response organizertest.Response
		wantBody string
	}{
		{"sweep failed", organizertest.Failure, "ERROR"},
		{"accepted is not ok", organizertest.Response{Status: http.StatusAccepted}, ""},
		{"no content is not ok", organizertest.Response{Status: http.StatusNoContent}, ""},
		{"bad gateway", organizertest.Response{Status: http.StatusBadGateway, Body: "upstream down\n"}, "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := organizertest.NewServer(t, tt.response)
			client := organizer.NewClient(srv.ScanURL())

			status, err := client.TriggerScan(context.Background(), item)
			require.Error(t, err)
			assert.Equal(t, tt.response.Status, status)

			var statusErr *organizer.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.response.Status, statusErr.StatusCode)
			assert.Equal(t, tt.wantBody, statusErr.Body)
		})
	}
}

func TestTriggerScan_UnknownRoute(t *testing.T) {
	srv := organizertest.NewServer(t, organizertest.OK)
	client := organizer.NewClient(srv.URL + "/scan")

	status, err := client.TriggerScan(context.Background(), item)
	assert.Equal(t, http.StatusNotFound, status)

	var statusErr *organizer.StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Empty(t, srv.Calls())
}

func TestTriggerScan_Unreachable(t *testing.T) {
	client := organizer.NewClient(organizertest.UnreachableURL(t))

	status, err := client.TriggerScan(context.Background(), item)
	assert.Zero(t, status)

	var transportErr *organizer.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "send_request", transportErr.Op)
}

func TestTriggerScan_TruncatedBodyIsNotAnAcknowledgment(t *testing.T) {
	srv := organizertest.NewServer(t, organizertest.Truncate)
	client := organizer.NewClient(srv.ScanURL())

	status, err := client.TriggerScan(context.Background(), item)
	assert.Equal(t, http.StatusOK, status)

	var transportErr *organizer.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "read_response", transportErr.Op)
}

func TestTriggerScan_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := organizer.NewClient(srv.URL, organizer.WithTimeout(50*time.Millisecond))

	_, err := client.TriggerScan(context.Background(), item)

	var transportErr *organizer.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestTriggerScan_ItemHeaders(t *testing.T) {
	srv := organizertest.NewServer(t, organizertest.OK)
	client := organizer.NewClient(srv.ScanURL(), organizer.WithItemHeaders(true))

	ctx := logctx.WithRequestID(context.Background(), "req-123")

	_, err := client.TriggerScan(ctx, item)
	require.NoError(t, err)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "req-123", calls[0].RequestID)
	assert.Equal(t, item.Name, calls[0].TorrentName)
	assert.Equal(t, item.Dir, calls[0].TorrentDir)
	assert.Empty(t, calls[0].Body)
}

func TestTriggerScan_ContextCancelled(t *testing.T) {
	srv := organizertest.NewServer(t, organizertest.OK)
	client := organizer.NewClient(srv.ScanURL())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.TriggerScan(ctx, item)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "organizer responded with HTTP 500: ERROR",
		(&organizer.StatusError{StatusCode: 500, Body: "ERROR"}).Error())
	assert.Equal(t, "organizer responded with HTTP 404",
		(&organizer.StatusError{StatusCode: 404}).Error())

	cause := errors.New("connection refused")
	err := &organizer.TransportError{Op: "send_request", Err: cause}
	assert.Equal(t, "organizer transport error during send_request: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}
