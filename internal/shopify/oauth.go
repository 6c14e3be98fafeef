package shopify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shoplytics/shoplytics/internal/platform/crypt"
	"github.com/shoplytics/shoplytics/internal/platform/httpx"
	"github.com/shoplytics/shoplytics/internal/stores"
)

var shopDomainRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// ValidShopDomain reports whether the domain looks like a myshopify domain.
func ValidShopDomain(domain string) bool {
	return shopDomainRe.MatchString(domain)
}

// TokenExchanger swaps an authorization code for an access token.
type TokenExchanger interface {
	Exchange(ctx context.Context, shop, code string) (token, scope string, err error)
}

// SyncEnqueuer schedules the initial reconciliation after an install.
type SyncEnqueuer interface {
	EnqueueStoreSync(ctx context.Context, storeID int64) error
}

// OAuthConfig carries the app credentials for the install flow.
type OAuthConfig struct {
	APIKey       string
	APISecret    string
	Scopes       string
	RedirectBase string
}

// OAuthHandler implements the Shopify install flow: connect issues the
// authorize URL, callback verifies and completes the installation.
type OAuthHandler struct {
	logger    *slog.Logger
	cfg       OAuthConfig
	states    *StateStore
	stores    *stores.Service
	sealer    *crypt.Sealer
	exchanger TokenExchanger
	syncs     SyncEnqueuer
}

// NewOAuthHandler constructs the handler. syncs may be nil; no initial sync
// is then scheduled.
func NewOAuthHandler(logger *slog.Logger, cfg OAuthConfig, states *StateStore, storeSvc *stores.Service, sealer *crypt.Sealer, exchanger TokenExchanger, syncs SyncEnqueuer) *OAuthHandler {
	return &OAuthHandler{
		logger:    logger,
		cfg:       cfg,
		states:    states,
		stores:    storeSvc,
		sealer:    sealer,
		exchanger: exchanger,
		syncs:     syncs,
	}
}

// MountRoutes attaches the install flow routes.
func (h *OAuthHandler) MountRoutes(r chi.Router) {
	r.Get("/connect", h.connect)
	r.Get("/callback", h.callback)
}

func (h *OAuthHandler) connect(w http.ResponseWriter, r *http.Request) {
	shop := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("shop")))
	if !ValidShopDomain(shop) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop (expected like your-store.myshopify.com)")
		return
	}
	if h.cfg.APIKey == "" || h.cfg.RedirectBase == "" {
		h.logger.Error("oauth connect without app credentials configured")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	state, err := randomState(24)
	if err != nil {
		h.logger.Error("generate oauth state", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if err := h.states.Put(r.Context(), state, shop); err != nil {
		h.logger.Error("store oauth state", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	authorize := url.URL{
		Scheme: "https",
		Host:   shop,
		Path:   "/admin/oauth/authorize",
	}
	q := authorize.Query()
	q.Set("client_id", h.cfg.APIKey)
	q.Set("scope", h.cfg.Scopes)
	q.Set("redirect_uri", strings.TrimRight(h.cfg.RedirectBase, "/")+"/integrations/shopify/callback")
	q.Set("state", state)
	authorize.RawQuery = q.Encode()

	httpx.JSON(w, http.StatusOK, map[string]string{"authorize_url": authorize.String()})
}

func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	shop := strings.ToLower(strings.TrimSpace(params.Get("shop")))
	code := strings.TrimSpace(params.Get("code"))
	state := strings.TrimSpace(params.Get("state"))

	if !ValidShopDomain(shop) || code == "" || state == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing required oauth params")
		return
	}
	if !VerifyCallbackHMAC(params, h.cfg.APISecret) {
		h.logger.Warn("oauth callback hmac rejected", slog.String("shop", shop))
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	issuedFor, err := h.states.Consume(r.Context(), state)
	if err != nil {
		if errors.Is(err, ErrStateUnknown) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		h.logger.Error("consume oauth state", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if issuedFor != shop {
		h.logger.Warn("oauth state shop mismatch", slog.String("issued_for", issuedFor), slog.String("shop", shop))
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	token, scope, err := h.exchanger.Exchange(r.Context(), shop, code)
	if err != nil {
		h.logger.Error("oauth token exchange", slog.String("shop", shop), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Token Exchange Failed", "")
		return
	}

	sealed, err := h.sealer.Seal([]byte(token))
	if err != nil {
		h.logger.Error("seal access token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	storeID, err := h.stores.Install(r.Context(), shop, sealed, scope)
	if err != nil {
		h.logger.Error("install store", slog.String("shop", shop), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	if h.syncs != nil {
		if err := h.syncs.EnqueueStoreSync(r.Context(), storeID); err != nil {
			// Install already landed; sync can be triggered manually.
			h.logger.Error("enqueue initial sync", slog.Int64("store_id", storeID), slog.Any("error", err))
		}
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"status": "connected", "store_id": storeID, "shop": shop})
}

// VerifyCallbackHMAC checks the hex HMAC Shopify appends to OAuth redirect
// query strings: HMAC-SHA256 over the sorted key=value pairs with the hmac
// and signature params removed.
func VerifyCallbackHMAC(params url.Values, secret string) bool {
	declared := params.Get("hmac")
	if declared == "" || secret == "" {
		return false
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(declared))
}

func randomState(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RESTExchanger exchanges codes against the shop's admin OAuth endpoint.
type RESTExchanger struct {
	APIKey    string
	APISecret string
	Client    *http.Client
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// Exchange implements TokenExchanger.
func (e *RESTExchanger) Exchange(ctx context.Context, shop, code string) (string, string, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     e.APIKey,
		"client_secret": e.APISecret,
		"code":          code,
	})
	if err != nil {
		return "", "", err
	}

	endpoint := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("token exchange request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", "", fmt.Errorf("token exchange status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", "", errors.New("token exchange returned empty token")
	}
	return out.AccessToken, out.Scope, nil
}
