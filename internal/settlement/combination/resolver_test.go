package combination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ars-29/bet-app-v2/internal/settlement/outcome"
	"github.com/Ars-29/bet-app-v2/internal/wagers"
)

func res(statuses ...string) []outcome.Result {
	out := make([]outcome.Result, len(statuses))
	for i, s := range statuses {
		out[i] = outcome.Result{Status: s, Reason: "r" + s}
	}
	return out
}

func TestResolveAllWon(t *testing.T) {
	// 10.00 × (2.0 × 3.0) = 60.00
	s, err := Resolve(res(wagers.StatusWon, wagers.StatusWon), 1000, 6.0)
	require.NoError(t, err)
	assert.Equal(t, wagers.StatusWon, s.Status)
	assert.Equal(t, int64(6000), s.PayoutCents)
}

func TestResolvePayoutRounds(t *testing.T) {
	// 10.01 × 1.855 = 18.56855 -> arredonda pra 18.57
	s, err := Resolve(res(wagers.StatusWon), 1001, 1.855)
	require.NoError(t, err)
	assert.Equal(t, int64(1857), s.PayoutCents)
}

func TestResolveAnyLostLosesAll(t *testing.T) {
	s, err := Resolve(res(wagers.StatusWon, wagers.StatusLost, wagers.StatusWon), 1000, 8.0)
	require.NoError(t, err)
	assert.Equal(t, wagers.StatusLost, s.Status)
	assert.Equal(t, int64(0), s.PayoutCents)
}

func TestResolveLostDominatesRefund(t *testing.T) {
	// derrota anula a combinada mesmo com perna reembolsada
	s, err := Resolve(res(wagers.StatusRefunded, wagers.StatusLost), 1000, 4.0)
	require.NoError(t, err)
	assert.Equal(t, wagers.StatusLost, s.Status)
	assert.Equal(t, int64(0), s.PayoutCents)
}

func TestResolveRefundReturnsStake(t *testing.T) {
	s, err := Resolve(res(wagers.StatusWon, wagers.StatusRefunded), 1000, 4.0)
	require.NoError(t, err)
	assert.Equal(t, wagers.StatusRefunded, s.Status)
	assert.Equal(t, int64(1000), s.PayoutCents)
}

func TestResolveUnresolvedLeg(t *testing.T) {
	_, err := Resolve(res(wagers.StatusWon, wagers.StatusPending), 1000, 4.0)
	assert.ErrorIs(t, err, ErrNotDecided)

	_, err = Resolve(nil, 1000, 4.0)
	assert.ErrorIs(t, err, ErrNotDecided)
}
