// Package metrics exposes Prometheus collectors for ledger mutations and
// reconciliation runs. Collectors register on the default registry, which
// cmd/api serves on /metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
)

const namespace = "subledger"

var (
	ledgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_operations_total",
		Help:      "Ledger mutations by operation, transaction type and outcome.",
	}, []string{"operation", "type", "outcome"})

	reconciliationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciliation_runs_total",
		Help:      "Reconciliation runs by mode (dry_run or corrective).",
	}, []string{"mode"})

	reconciliationCorrections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciliation_wallet_corrections_total",
		Help:      "Wallet balances overwritten by reconciliation.",
	})

	reconciliationDrift = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reconciliation_last_drift_wallets",
		Help:      "Wallets whose stored balance drifted from history in the last run.",
	})
)

// Outcome classifies err into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrValidation):
		return "invalid"
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrNoMainWallet):
		return "not_found"
	default:
		return "error"
	}
}

// ObserveLedgerOperation counts one Create, Edit or Delete.
func ObserveLedgerOperation(operation, txType string, err error) {
	ledgerOperations.WithLabelValues(operation, txType, Outcome(err)).Inc()
}

// ObserveReconciliation records the result of one run.
func ObserveReconciliation(dryRun bool, drifted, corrected int) {
	mode := "corrective"
	if dryRun {
		mode = "dry_run"
	}

	reconciliationRuns.WithLabelValues(mode).Inc()
	reconciliationCorrections.Add(float64(corrected))
	reconciliationDrift.Set(float64(drifted))
}
