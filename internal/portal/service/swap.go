package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/domain"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/metrics"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/store"
	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
	"github.com/mothertree-labs/mothertree-oss/pkg/slogx"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrUpstreamUnavailable = errors.New("identity provider unavailable")
)

// SwapService restores a diverted identity record to its tenant email
// address. A record is diverted while an invitation or recovery flow
// is in progress: its primary email points at an external address and
// the tenant address is parked in an attribute.
type SwapService struct {
	Gateway IdentityGateway
	Audit   store.AuditLog
	Metrics metrics.Recorder
}

// SwapResult reports what SwapToTenantIfNeeded did. NewEmail is the
// restored tenant address and is only set when Swapped is true.
type SwapResult struct {
	Swapped  bool
	NewEmail string
}

// SwapToTenantIfNeeded promotes the parked tenant address back to the
// record's primary email and clears the flow bookkeeping attributes.
// A record that is not diverted is left untouched. The operation is
// idempotent: calling it twice is the same as calling it once.
func (s *SwapService) SwapToTenantIfNeeded(ctx context.Context, userID string) (SwapResult, error) {
	log := slogx.FromContext(ctx)

	// 1. Fetch the current record.
	user, err := s.Gateway.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, kcadmin.ErrNotFound) {
			return SwapResult{}, ErrAccountNotFound
		}
		log.Error("failed to fetch user for email swap",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return SwapResult{}, ErrUpstreamUnavailable
	}

	// 2. Already converged: nothing to do. A parked address equal to
	// the primary can happen when a concurrent swap already ran.
	tenantEmail := user.Attr(domain.AttrTenantEmail)
	if tenantEmail == "" || strings.EqualFold(tenantEmail, user.Email) {
		observe(s.Metrics).RecordSwap(metrics.OutcomeNoop)
		return SwapResult{}, nil
	}

	flow := domain.ClassifyFlow(user)

	// 3. Promote the tenant address and drop the flow attributes in a
	// single read-modify-write against the provider.
	_, err = s.Gateway.MergeUser(ctx, userID, kcadmin.UserPatch{
		Email:    stringPtr(tenantEmail),
		Username: stringPtr(tenantEmail),
		Attributes: map[string][]string{
			domain.AttrTenantEmail:     nil,
			domain.AttrIsRecoveryFlow:  nil,
			domain.AttrBeginSetupToken: nil,
		},
	})
	if err != nil {
		log.Error("failed to swap email to tenant address",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		observe(s.Metrics).RecordSwap(metrics.OutcomeError)
		return SwapResult{}, ErrUpstreamUnavailable
	}

	log.Info("restored tenant email address",
		slog.String("user_id", userID),
		slog.String("email", domain.MaskEmail(tenantEmail)),
		slog.String("flow", flow.String()),
	)
	observe(s.Metrics).RecordSwap(metrics.OutcomeOK)
	recordAudit(ctx, s.Audit, store.AuditEvent{
		Kind:        store.EventEmailSwap,
		UserID:      userID,
		MaskedEmail: domain.MaskEmail(tenantEmail),
		Outcome:     "ok",
		Detail:      "flow=" + flow.String(),
	})

	return SwapResult{Swapped: true, NewEmail: tenantEmail}, nil
}

// recordAudit writes an audit event, logging rather than failing the
// flow when the audit store is down.
func recordAudit(ctx context.Context, audit store.AuditLog, event store.AuditEvent) {
	if audit == nil {
		return
	}
	if err := audit.Record(ctx, event); err != nil {
		slogx.FromContext(ctx).Warn("failed to record audit event",
			slog.String("kind", event.Kind),
			slog.Any("error", err),
		)
	}
}
