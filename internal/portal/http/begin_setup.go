package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/metrics"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/service"
	"github.com/mothertree-labs/mothertree-oss/pkg/httpx"
	"github.com/mothertree-labs/mothertree-oss/pkg/setuptoken"
	"github.com/mothertree-labs/mothertree-oss/pkg/slogx"
)

// BeginSetupHandler is the public redirect gate. Enrollment emails
// route the user through here so the portal can restore the tenant
// email address before the identity provider consumes the action link.
//
// The endpoint is unauthenticated by design: the user clicking it has
// no session yet. The HMAC setup token is what keeps it from being an
// open oracle, and the next-URL check is what keeps it from being an
// open redirect.
type BeginSetupHandler struct {
	SwapService *service.SwapService
	Tokens      *setuptoken.Codec
	Limiter     httpx.Limiter
	Metrics     metrics.Recorder

	// TenantDomain constrains where next may point.
	TenantDomain string
}

// ServeHTTP godoc
//
//	@Summary		Setup Redirect Gate
//	@Description	Restores a diverted account's tenant email address, then forwards the browser to the identity provider's action link.
//	@Description	Protected by an HMAC token issued when the enrollment email was sent.
//	@Tags			Setup
//	@Param			userId	query	string	true	"Account ID the setup link was issued for"
//	@Param			next	query	string	true	"Identity provider action link to continue to"
//	@Param			token	query	string	true	"HMAC setup token"
//	@Success		302	"Redirect to next"
//	@Failure		400	{string}	string	"Missing parameters or disallowed redirect target"
//	@Failure		403	{string}	string	"Invalid or expired setup token"
//	@Failure		429	{string}	string	"Rate limited"
//	@Router			/beginSetup [get].
func (h *BeginSetupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.URL.Query().Get("userId")
	next := r.URL.Query().Get("next")
	token := r.URL.Query().Get("token")

	// 1. Parameter presence, before spending a rate-limit slot.
	if userID == "" || next == "" {
		http.Error(w, "Invalid setup link", http.StatusBadRequest)
		return
	}

	// 2. Rate limit by source IP.
	if !h.allow(w, r) {
		return
	}

	// 3. Only redirect within the tenant domain.
	if !h.allowedRedirect(next) {
		log.Warn("rejected redirect to disallowed target",
			"next", next,
		)
		http.Error(w, "Invalid redirect URL", http.StatusBadRequest)
		return
	}

	// 4. The token proves this link came from an enrollment email we
	// sent for this user.
	if !h.Tokens.Verify(userID, token) {
		log.Warn("setup token rejected", "user_id", userID)
		http.Error(w, "Invalid or expired setup link", http.StatusForbidden)
		return
	}

	// 5. Restore the tenant address. A failure here must not strand
	// the user: the action link is still valid, so let them through
	// and leave convergence to the next gate pass or first login.
	if _, err := h.SwapService.SwapToTenantIfNeeded(ctx, userID); err != nil {
		log.Error("email swap failed, continuing to redirect",
			"user_id", userID,
			"error", err,
		)
	}

	http.Redirect(w, r, next, http.StatusFound)
}

// allow charges the request against the per-IP limiter and writes the
// 429 when it is over. A limiter error fails open.
func (h *BeginSetupHandler) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.Limiter == nil {
		return true
	}

	ok, retryAfter, err := h.Limiter.Allow(r.Context(), httpx.IPKeyExtractor(r))
	if err != nil {
		slogx.FromContext(r.Context()).Warn("rate limiter unavailable, failing open", "error", err)
		return true
	}
	if ok {
		return true
	}

	if h.Metrics != nil {
		h.Metrics.RecordRateLimited("/beginSetup")
	}
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
	http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
	return false
}

// allowedRedirect accepts absolute URLs whose host is the tenant
// domain or a subdomain of it. A raw suffix match would also accept
// "eviltenant.example", so the boundary dot is required.
func (h *BeginSetupHandler) allowedRedirect(next string) bool {
	parsed, err := url.Parse(next)
	if err != nil || !parsed.IsAbs() || parsed.Hostname() == "" {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	domain := strings.ToLower(h.TenantDomain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
