package ledger

import (
	"testing"

	"chainforge/core/assets"
	"chainforge/core/store"
	"chainforge/core/types"

	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *assets.Registry) {
	t.Helper()
	s := store.New()
	reg := assets.New(s)
	require.NoError(t, reg.Create(assets.Asset{
		Symbol:            "COIN",
		Kind:              assets.KindCurrency,
		Issuer:            "genesis",
		IssuerPermissions: assets.PermChargeMarketFee,
		MaxSupply:         types.NewAmount(1_000_000_000),
	}))
	return New(s, reg), reg
}

// S1 — Basic transfer.
func TestTransferS1(t *testing.T) {
	l, reg := newTestLedger(t)
	require.NoError(t, l.Mint("alice", "COIN", types.NewAmount(1000)))

	require.NoError(t, l.Transfer("alice", "bob", "COIN", types.NewAmount(100)))

	require.Equal(t, uint64(900), l.Balance("alice", "COIN").Liquid.Uint64())
	require.Equal(t, uint64(100), l.Balance("bob", "COIN").Liquid.Uint64())

	dyn, _ := reg.Dynamic("COIN")
	require.Equal(t, uint64(1000), dyn.TotalSupply.Uint64())
}

func TestTransferInsufficientFunds(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Mint("alice", "COIN", types.NewAmount(10)))
	err := l.Transfer("alice", "bob", "COIN", types.NewAmount(100))
	require.Error(t, err)
}

// S3 — Stake schedule completes.
func TestStakeScheduleCompletesS3(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Mint("alice", "COIN", types.NewAmount(1000)))

	var now types.BlockTime = 0
	require.NoError(t, l.ScheduleStake("alice", "COIN", types.NewAmount(400), 4, now))

	for i := 0; i < 4; i++ {
		now = now.Add(StakeInterval)
		require.NoError(t, l.AdvanceStakeSchedules(now, []string{"alice"}, "COIN"))
	}

	b := l.Balance("alice", "COIN")
	require.Equal(t, uint64(400), b.Staked.Uint64())
	require.Equal(t, uint64(600), b.Liquid.Uint64())
	require.True(t, b.StakeRate.IsZero())
	require.Equal(t, uint64(400), b.TotalStaked.Uint64())
}

func TestScheduleStakeZeroCancels(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Mint("alice", "COIN", types.NewAmount(1000)))
	require.NoError(t, l.ScheduleStake("alice", "COIN", types.NewAmount(400), 4, 0))
	require.NoError(t, l.ScheduleStake("alice", "COIN", types.ZeroAmount(), 0, 0))

	b := l.Balance("alice", "COIN")
	require.True(t, b.ToStake.IsZero())
	require.True(t, b.StakeRate.IsZero())
}

func TestBalanceInvariantRejectsOverdelegation(t *testing.T) {
	b := Balance{Account: "alice", Symbol: "COIN", Staked: types.NewAmount(10), Delegated: types.NewAmount(20)}
	require.Error(t, b.CheckInvariants())
}
