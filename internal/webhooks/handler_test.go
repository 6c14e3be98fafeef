package webhooks

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(f *fixture) *httptest.Server {
	r := chi.NewRouter()
	h := NewHandler(slog.New(slog.DiscardHandler), f.dispatcher)
	r.Route("/webhooks", h.MountRoutes)
	return httptest.NewServer(r)
}

func postWebhook(t *testing.T, srv *httptest.Server, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHandlerRoutesTopicAndHeaders(t *testing.T) {
	f := newFixture()
	srv := newTestServer(f)
	defer srv.Close()

	body := `{"id":31,"email":"c@d.com"}`
	resp := postWebhook(t, srv, "/webhooks/customers/create", body, map[string]string{
		HeaderShopDomain: "acme.myshopify.com",
		HeaderHmac:       sign(t, testSecret, []byte(body)),
		HeaderWebhookID:  "wh-http-1",
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, f.customers.upserts, 1)
	assert.Equal(t, int64(31), f.customers.upserts[0].ExternalID)
	assert.True(t, f.claims.claimed["wh-http-1"])
}

func TestHandlerUnauthorizedWithoutSignature(t *testing.T) {
	f := newFixture()
	srv := newTestServer(f)
	defer srv.Close()

	resp := postWebhook(t, srv, "/webhooks/orders/create", `{"id":1}`, map[string]string{
		HeaderShopDomain: "acme.myshopify.com",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, f.orders.upserts)
}
