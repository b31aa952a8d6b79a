package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errs.Invalid("amount", "must not be negative"), "invalid"},
		{fmt.Errorf("edit: %w", errs.NotFound("transaction", 1)), "not_found"},
		{errs.ErrNoMainWallet, "not_found"},
		{errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err))
	}
}

func TestObserveLedgerOperation(t *testing.T) {
	c := ledgerOperations.WithLabelValues("create", "REFUND", "ok")
	before := testutil.ToFloat64(c)

	ObserveLedgerOperation("create", "REFUND", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestObserveReconciliation(t *testing.T) {
	before := testutil.ToFloat64(reconciliationCorrections)

	ObserveReconciliation(false, 3, 2)
	assert.Equal(t, before+2, testutil.ToFloat64(reconciliationCorrections))
	assert.Equal(t, float64(3), testutil.ToFloat64(reconciliationDrift))

	ObserveReconciliation(true, 1, 0)
	assert.Equal(t, float64(1), testutil.ToFloat64(reconciliationDrift))
}
