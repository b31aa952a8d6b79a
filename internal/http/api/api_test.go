package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"Validation", errs.Invalid("amount", "must not be negative"), http.StatusBadRequest, "amount"},
		{"NotFound", errs.NotFound("wallet", "w1"), http.StatusNotFound, "w1"},
		{"NoMainWallet", errs.ErrNoMainWallet, http.StatusConflict, "no main wallet"},
		{
			"InsufficientFunds",
			&errs.InsufficientFundsError{WalletName: "Alice card", Available: decimal.NewFromInt(5), Required: decimal.NewFromInt(9)},
			http.StatusUnprocessableEntity,
			"Alice card",
		},
		{"Persistence", errs.Persistence("insert transaction", errors.New("connection reset")), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "connection reset")
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("2025-03-04T10:30:00+01:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)))

	_, err = ParseDate("04/03/2025")
	assert.Error(t, err)
}

func TestDate_UnmarshalJSON(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalJSON([]byte(`"2025-01-31"`)))
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), d.Time)

	assert.Error(t, d.UnmarshalJSON([]byte(`42`)))
}

func TestDateParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?start_date=2025-01-01&end_date=bad", nil)

	start, err := DateParam(r, "start_date")
	require.NoError(t, err)
	require.NotNil(t, start)

	_, err = DateParam(r, "end_date")
	assert.ErrorIs(t, err, errs.ErrValidation)

	missing, err := DateParam(r, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
