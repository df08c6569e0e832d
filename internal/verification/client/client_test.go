package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerGelinas/socure/internal/verification/metrics"
	"github.com/TylerGelinas/socure/internal/verification/request"
	"github.com/TylerGelinas/socure/pkg/platform/circuit"
	"github.com/TylerGelinas/socure/pkg/requestcontext"
)

const endpoint = "https://sandbox.socure.test"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func payload() *request.Payload {
	return &request.Payload{
		Modules:      []string{"kyc", "phoneriskscore"},
		FirstName:    "Ada",
		SurName:      "Lovelace",
		MobileNumber: "+15550100",
	}
}

func newClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLogger(discard)}, opts...)
	return New(Config{Endpoint: url, APIKey: "secret", Timeout: 2 * time.Second}, opts...)
}

func TestSend_Success(t *testing.T) {
	defer gock.Off()
	gock.New(endpoint).
		Post("/api/3.0/EmailAuthScore").
		MatchHeader("Authorization", "^SocureApiKey secret$").
		MatchHeader("Content-Type", "application/json").
		MatchHeader("Accept", "application/json").
		MatchHeader("X-Request-ID", "req-1").
		JSON(map[string]any{
			"modules":      []string{"kyc", "phoneriskscore"},
			"firstName":    "Ada",
			"surName":      "Lovelace",
			"mobileNumber": "+15550100",
		}).
		Reply(http.StatusOK).
		JSON(map[string]any{"referenceId": "ref-1", "phoneRisk": map[string]any{"score": 0.97}})

	m := metrics.New(prometheus.NewRegistry())
	c := newClient(t, endpoint+"/api/3.0/EmailAuthScore", WithMetrics(m))

	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	resp, err := c.Send(ctx, payload())

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"referenceId":"ref-1","phoneRisk":{"score":0.97}}`, string(resp.Body))
	assert.False(t, gock.HasUnmatchedRequest())
	assert.True(t, gock.IsDone())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("ok")))
}

func TestSend_NonSuccessStatusKeepsBody(t *testing.T) {
	defer gock.Off()
	gock.New(endpoint).
		Post("/").
		Reply(http.StatusServiceUnavailable).
		JSON(map[string]any{"status": "Error", "msg": "maintenance"})

	resp, err := newClient(t, endpoint+"/").Send(context.Background(), payload())

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, KindNonSuccessStatus, terr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, terr.StatusCode)
	assert.True(t, terr.Transient())
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "maintenance")
}

func TestSend_ClientErrorIsNotTransient(t *testing.T) {
	defer gock.Off()
	gock.New(endpoint).Post("/").Reply(http.StatusBadRequest).JSON(map[string]any{"msg": "bad"})

	_, err := newClient(t, endpoint+"/").Send(context.Background(), payload())

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.False(t, terr.Transient())
	assert.EqualError(t, err, "verification service returned status 400")
}

func TestSend_OversizedResponseIsRejected(t *testing.T) {
	defer gock.Off()
	gock.New(endpoint).Post("/").Reply(http.StatusOK).BodyString(`{"referenceId":"0123456789"}`)

	m := metrics.New(prometheus.NewRegistry())
	resp, err := newClient(t, endpoint+"/", WithMaxResponseBytes(16), WithMetrics(m)).
		Send(context.Background(), payload())

	assert.Nil(t, resp)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, KindResponseTooLarge, terr.Kind)
	assert.Equal(t, http.StatusOK, terr.StatusCode)
	assert.False(t, terr.Transient())
	assert.Contains(t, err.Error(), "exceeds 16 bytes")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("response_too_large")))
}

func TestSend_ResponseAtLimitIsAccepted(t *testing.T) {
	defer gock.Off()
	body := `{"referenceId":"x"}`
	gock.New(endpoint).Post("/").Reply(http.StatusOK).BodyString(body)

	resp, err := newClient(t, endpoint+"/", WithMaxResponseBytes(int64(len(body)))).
		Send(context.Background(), payload())

	require.NoError(t, err)
	assert.Equal(t, body, string(resp.Body))
}

func TestSend_NetworkError(t *testing.T) {
	defer gock.Off()
	gock.New(endpoint).Post("/").ReplyError(errors.New("connection reset by peer"))

	resp, err := newClient(t, endpoint+"/").Send(context.Background(), payload())

	assert.Nil(t, resp)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, KindNetwork, terr.Kind)
	assert.True(t, terr.Transient())
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{Endpoint: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond}, WithLogger(discard))
	_, err := c.Send(context.Background(), payload())

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, KindTimeout, terr.Kind)
}

func TestSend_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url).Send(context.Background(), payload())

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, KindConnectionRefused, terr.Kind)
}

func TestSend_CallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(t, srv.URL).Send(ctx, payload())

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, KindCancelled, terr.Kind)
	assert.False(t, terr.Transient())
}

func TestSend_CircuitBreaker(t *testing.T) {
	defer gock.Off()
	gock.New(endpoint).Post("/").Times(2).Reply(http.StatusBadGateway)

	m := metrics.New(prometheus.NewRegistry())
	breaker := circuit.New("socure", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	c := newClient(t, endpoint+"/", WithBreaker(breaker), WithMetrics(m))

	for range 2 {
		_, err := c.Send(context.Background(), payload())
		require.Error(t, err)
	}
	assert.Equal(t, circuit.StateOpen, breaker.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerOpen))

	_, err := c.Send(context.Background(), payload())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, KindCircuitOpen, terr.Kind)
	assert.True(t, gock.IsDone(), "open circuit must not reach the network")
}

func TestSend_ClientErrorsDoNotTripBreaker(t *testing.T) {
	defer gock.Off()
	gock.New(endpoint).Post("/").Times(3).Reply(http.StatusUnprocessableEntity)

	breaker := circuit.New("socure", circuit.WithFailureThreshold(2))
	c := newClient(t, endpoint+"/", WithBreaker(breaker))
	for range 3 {
		_, _ = c.Send(context.Background(), payload())
	}
	assert.Equal(t, circuit.StateClosed, breaker.State())
}

func TestNew_PanicsOnMissingConfig(t *testing.T) {
	assert.Panics(t, func() { New(Config{Timeout: time.Second}) })
	assert.Panics(t, func() { New(Config{Endpoint: endpoint}) })
}

func TestTransportErrorMessages(t *testing.T) {
	assert.Equal(t, "verification request failed [circuit_open]", (&TransportError{Kind: KindCircuitOpen}).Error())
	err := &TransportError{Kind: KindNetwork, Err: io.ErrUnexpectedEOF}
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "[network]")
}
