// Package metrics collects and exposes Prometheus metrics for the
// portal's lifecycle operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the service layer records through. A nil
// *Collector is a valid no-op Recorder.
type Recorder interface {
	RecordSwap(outcome string)
	RecordRecovery(outcome string)
	RecordInvitation(outcome string)
	RecordGuestRegistration(outcome string)
	RecordRateLimited(route string)
}

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeNoop     = "noop"
	OutcomeError    = "error"
	OutcomeRefused  = "refused"
	OutcomeConflict = "conflict"
)

// Collector records portal metrics into a Prometheus registry.
type Collector struct {
	swaps       *prometheus.CounterVec
	recoveries  *prometheus.CounterVec
	invitations *prometheus.CounterVec
	guests      *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_email_swaps_total",
			Help: "Email restorations to the tenant address, by outcome.",
		}, []string{"outcome"}),
		recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_recoveries_total",
			Help: "Account recovery attempts, by outcome.",
		}, []string{"outcome"}),
		invitations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_invitations_total",
			Help: "Member invitations, by outcome.",
		}, []string{"outcome"}),
		guests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_guest_registrations_total",
			Help: "Guest account registrations, by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_rate_limited_total",
			Help: "Requests rejected by a rate limit, by route.",
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.swaps,
		c.recoveries,
		c.invitations,
		c.guests,
		c.rateLimited,
	)

	return c
}

// RecordSwap counts an email swap attempt.
func (c *Collector) RecordSwap(outcome string) {
	if c == nil {
		return
	}
	c.swaps.WithLabelValues(outcome).Inc()
}

// RecordRecovery counts a recovery attempt.
func (c *Collector) RecordRecovery(outcome string) {
	if c == nil {
		return
	}
	c.recoveries.WithLabelValues(outcome).Inc()
}

// RecordInvitation counts an invitation.
func (c *Collector) RecordInvitation(outcome string) {
	if c == nil {
		return
	}
	c.invitations.WithLabelValues(outcome).Inc()
}

// RecordGuestRegistration counts a guest registration.
func (c *Collector) RecordGuestRegistration(outcome string) {
	if c == nil {
		return
	}
	c.guests.WithLabelValues(outcome).Inc()
}

// RecordRateLimited counts a request rejected by a limiter.
func (c *Collector) RecordRateLimited(route string) {
	if c == nil {
		return
	}
	c.rateLimited.WithLabelValues(route).Inc()
}

// Handler returns the HTTP handler Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
