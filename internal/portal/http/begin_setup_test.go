package http_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	portalhttp "github.com/mothertree-labs/mothertree-oss/internal/portal/http"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/service"
	"github.com/mothertree-labs/mothertree-oss/pkg/httpx"
	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
	"github.com/mothertree-labs/mothertree-oss/pkg/setuptoken"
)

func newGateHandler(t *testing.T, gw *stubGateway) (*portalhttp.BeginSetupHandler, *setuptoken.Codec) {
	t.Helper()

	tokens, err := setuptoken.New([]byte("test-secret"))
	require.NoError(t, err)

	return &portalhttp.BeginSetupHandler{
		SwapService:  &service.SwapService{Gateway: gw},
		Tokens:       tokens,
		Limiter:      httpx.NewMemoryLimiter(httpx.SetupLimit),
		TenantDomain: "tenant.example",
	}, tokens
}

func gateRequest(userID, next, token string) *http.Request {
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	if next != "" {
		q.Set("next", next)
	}
	if token != "" {
		q.Set("token", token)
	}
	r := httptest.NewRequest(http.MethodGet, "/beginSetup?"+q.Encode(), nil)
	r.RemoteAddr = "203.0.113.7:51234"
	return r
}

func divertedUser(id string) *kcadmin.User {
	return &kcadmin.User{
		ID:    id,
		Email: "recovery@gmail.example",
		Attributes: map[string][]string{
			"tenantEmail":    {"alice@tenant.example"},
			"isRecoveryFlow": {"true"},
		},
	}
}

func TestBeginSetupRestoresEmailAndRedirects(t *testing.T) {
	gw := newStubGateway()
	gw.getUser = func(_ context.Context, userID string) (*kcadmin.User, error) {
		return divertedUser(userID), nil
	}
	var merged *kcadmin.UserPatch
	gw.mergeUser = func(_ context.Context, userID string, patch kcadmin.UserPatch) (*kcadmin.User, error) {
		merged = &patch
		return &kcadmin.User{ID: userID, Email: *patch.Email}, nil
	}

	h, tokens := newGateHandler(t, gw)
	next := "https://auth.tenant.example/realms/tenant/login-actions/action-token?key=abc"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, gateRequest("user-1", next, tokens.Issue("user-1")))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, next, rec.Header().Get("Location"))

	require.NotNil(t, merged)
	require.Equal(t, "alice@tenant.example", *merged.Email)
}

func TestBeginSetupValidatesParamsBeforeRateLimiting(t *testing.T) {
	gw := newStubGateway()
	h, tokens := newGateHandler(t, gw)

	// Exhaust the limiter from this IP.
	next := "https://auth.tenant.example/continue"
	for i := 0; i < httpx.SetupLimit.RequestsPerWindow; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, gateRequest("user-1", next, tokens.Issue("user-1")))
	}

	// A request with no userId must still get the 400, not the 429.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, gateRequest("", next, "whatever"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBeginSetupRateLimitsBySourceIP(t *testing.T) {
	gw := newStubGateway()
	gw.getUser = func(_ context.Context, userID string) (*kcadmin.User, error) {
		return divertedUser(userID), nil
	}
	h, tokens := newGateHandler(t, gw)
	next := "https://auth.tenant.example/continue"

	for i := 0; i < httpx.SetupLimit.RequestsPerWindow; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, gateRequest("user-1", next, tokens.Issue("user-1")))
		require.Equal(t, http.StatusFound, rec.Code, fmt.Sprintf("request %d", i+1))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, gateRequest("user-1", next, tokens.Issue("user-1")))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different source IP is unaffected.
	r := gateRequest("user-1", next, tokens.Issue("user-1"))
	r.RemoteAddr = "198.51.100.9:40000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusFound, rec.Code)
}

func TestBeginSetupRejectsForeignRedirects(t *testing.T) {
	cases := []struct {
		name string
		next string
	}{
		{"other domain", "https://evil.example/phish"},
		{"suffix collision", "https://eviltenant.example/phish"},
		{"relative path", "/realms/tenant/login"},
		{"scheme only", "https://"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newStubGateway()
			h, tokens := newGateHandler(t, gw)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, gateRequest("user-1", tc.next, tokens.Issue("user-1")))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Zero(t, gw.callCount("MergeUser"), "record must not be touched")
			require.Zero(t, gw.callCount("GetUser"))
		})
	}
}

func TestBeginSetupAcceptsSubdomainRedirect(t *testing.T) {
	gw := newStubGateway()
	gw.getUser = func(_ context.Context, userID string) (*kcadmin.User, error) {
		return divertedUser(userID), nil
	}
	h, tokens := newGateHandler(t, gw)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, gateRequest("user-1", "https://auth.tenant.example/x", tokens.Issue("user-1")))
	require.Equal(t, http.StatusFound, rec.Code)
}

func TestBeginSetupRejectsBadToken(t *testing.T) {
	gw := newStubGateway()
	h, _ := newGateHandler(t, gw)
	next := "https://auth.tenant.example/continue"

	for _, token := range []string{"", "garbage", "123:deadbeef"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, gateRequest("user-1", next, token))
		require.Equal(t, http.StatusForbidden, rec.Code)
	}

	// A token minted for another user must not transfer.
	tokens, err := setuptoken.New([]byte("test-secret"))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, gateRequest("user-1", next, tokens.Issue("user-2")))
	require.Equal(t, http.StatusForbidden, rec.Code)

	require.Zero(t, gw.callCount("MergeUser"))
}

func TestBeginSetupRedirectsEvenWhenSwapFails(t *testing.T) {
	gw := newStubGateway()
	gw.getUser = func(_ context.Context, _ string) (*kcadmin.User, error) {
		return nil, fmt.Errorf("provider down")
	}
	h, tokens := newGateHandler(t, gw)
	next := "https://auth.tenant.example/continue"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, gateRequest("user-1", next, tokens.Issue("user-1")))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, next, rec.Header().Get("Location"))
}
