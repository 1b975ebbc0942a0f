package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutSessionsStarted counts successfully created checkout sessions.
	CheckoutSessionsStarted prometheus.Counter
	// CheckoutSessionMisses counts lookups of absent or expired sessions.
	CheckoutSessionMisses prometheus.Counter
	// CheckoutConflicts counts concurrent-write conflicts on session state.
	CheckoutConflicts prometheus.Counter
	// CheckoutCompletions counts completion attempts by outcome.
	CheckoutCompletions *prometheus.CounterVec
	// CheckoutDiscountsApplied counts applied discounts by type.
	CheckoutDiscountsApplied *prometheus.CounterVec
	// ReceiptDeliveries counts receipt delivery attempts by outcome.
	ReceiptDeliveries *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutSessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_started_total",
			Help:      "Number of checkout sessions created.",
		})
		CheckoutSessionMisses = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_session_misses_total",
			Help:      "Number of session lookups that found nothing (expired, unknown or foreign tenant).",
		})
		CheckoutConflicts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_conflicts_total",
			Help:      "Number of session writes rejected by the optimistic version check.",
		})
		CheckoutCompletions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_completions_total",
			Help:      "Count of checkout completion attempts by outcome.",
		}, []string{"result"})
		CheckoutDiscountsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_discounts_applied_total",
			Help:      "Count of discounts applied to sessions by discount type.",
		}, []string{"type"})
		ReceiptDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_deliveries_total",
			Help:      "Count of receipt delivery attempts by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, CheckoutSessionsStarted, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CheckoutSessionsStarted = v
			}
		})
		mustRegisterCollector(reg, CheckoutSessionMisses, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CheckoutSessionMisses = v
			}
		})
		mustRegisterCollector(reg, CheckoutConflicts, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CheckoutConflicts = v
			}
		})
		mustRegisterCollector(reg, CheckoutCompletions, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutCompletions = v
			}
		})
		mustRegisterCollector(reg, CheckoutDiscountsApplied, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutDiscountsApplied = v
			}
		})
		mustRegisterCollector(reg, ReceiptDeliveries, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReceiptDeliveries = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
