package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks the throughput of the native engines and the RPC
// surface in front of them.
type LedgerMetrics struct {
	poolsCreated   prometheus.Counter
	contributions  *prometheus.CounterVec
	claims         *prometheus.CounterVec
	votes          *prometheus.CounterVec
	journalAppends prometheus.Counter
	rpcRequests    *prometheus.CounterVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process-wide ledger metrics, registering the collectors
// on first use.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			poolsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ledger_pools_created_total",
				Help: "Count of investment pools created.",
			}),
			contributions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_contributions_total",
				Help: "Count of accepted pool contributions by outcome.",
			}, []string{"outcome"}),
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_claims_total",
				Help: "Count of repayment claims by outcome.",
			}, []string{"outcome"}),
			votes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_votes_total",
				Help: "Count of governance ballots by choice.",
			}, []string{"choice"}),
			journalAppends: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ledger_journal_appends_total",
				Help: "Count of records appended to the audit journal.",
			}),
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_rpc_requests_total",
				Help: "Count of JSON-RPC requests by method and status.",
			}, []string{"method", "status"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.poolsCreated,
			ledgerRegistry.contributions,
			ledgerRegistry.claims,
			ledgerRegistry.votes,
			ledgerRegistry.journalAppends,
			ledgerRegistry.rpcRequests,
		)
	})
	return ledgerRegistry
}

// ObservePoolCreated bumps the pool creation counter.
func (m *LedgerMetrics) ObservePoolCreated() {
	if m == nil {
		return
	}
	m.poolsCreated.Inc()
}

// ObserveContribution records a contribution attempt outcome, "ok" or "error".
func (m *LedgerMetrics) ObserveContribution(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.contributions.WithLabelValues(outcome).Inc()
}

// ObserveClaim records a claim attempt outcome, "ok" or "error".
func (m *LedgerMetrics) ObserveClaim(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.claims.WithLabelValues(outcome).Inc()
}

// ObserveVote records an accepted ballot by choice.
func (m *LedgerMetrics) ObserveVote(choice string) {
	if m == nil {
		return
	}
	if choice == "" {
		choice = "unknown"
	}
	m.votes.WithLabelValues(choice).Inc()
}

// ObserveJournalAppend bumps the journal append counter.
func (m *LedgerMetrics) ObserveJournalAppend() {
	if m == nil {
		return
	}
	m.journalAppends.Inc()
}

// ObserveRPCRequest records one served JSON-RPC call.
func (m *LedgerMetrics) ObserveRPCRequest(method, status string) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.rpcRequests.WithLabelValues(method, status).Inc()
}
