package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/subledger/internal/config"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
)

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = config.DriverMemory

	b, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, b.Close()) })

	assert.Nil(t, b.Ping)

	w, created, err := b.Wallets.EnsureMainWallet(context.Background(), "u1", "Main")
	require.NoError(t, err)
	assert.True(t, created)

	txs, err := b.Ledger.ListTransactions(context.Background(), "u1", ledger.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)

	got, err := b.Wallets.GetWallet(context.Background(), "u1", w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = "sqlite"

	_, err := Open(context.Background(), cfg)
	assert.ErrorContains(t, err, "sqlite")
}
