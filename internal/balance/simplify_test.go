package balance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func balancesFrom(t *testing.T, m map[int64]string) map[int64]decimal.Decimal {
	t.Helper()
	out := make(map[int64]decimal.Decimal, len(m))
	for id, s := range m {
		out[id] = dec(t, s)
	}
	return out
}

// applyTransfers replays the instructions against a zero map; the result
// must reproduce the debtor/creditor positions exactly.
func applyTransfers(transfers []Transfer) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal)
	for _, tr := range transfers {
		out[tr.FromUserID] = out[tr.FromUserID].Sub(tr.Amount)
		out[tr.ToUserID] = out[tr.ToUserID].Add(tr.Amount)
	}
	return out
}

func TestSimplifyTwoParty(t *testing.T) {
	transfers := Simplify(balancesFrom(t, map[int64]string{1: "40.00", 2: "-40.00"}))

	require.Len(t, transfers, 1)
	require.Equal(t, int64(2), transfers[0].FromUserID)
	require.Equal(t, int64(1), transfers[0].ToUserID)
	require.Equal(t, "40.00", transfers[0].Amount.StringFixed(2))
}

func TestSimplifyChainCollapses(t *testing.T) {
	// A owes B 10, B owes C 10: nets to A paying C directly.
	transfers := Simplify(balancesFrom(t, map[int64]string{
		1: "-10.00", // A
		2: "0.00",   // B
		3: "10.00",  // C
	}))

	require.Len(t, transfers, 1)
	require.Equal(t, int64(1), transfers[0].FromUserID)
	require.Equal(t, int64(3), transfers[0].ToUserID)
	require.Equal(t, "10.00", transfers[0].Amount.StringFixed(2))
}

func TestSimplifyTransferBound(t *testing.T) {
	balances := balancesFrom(t, map[int64]string{
		1: "50.00",
		2: "30.00",
		3: "-20.00",
		4: "-25.00",
		5: "-35.00",
		6: "0.00",
	})

	transfers := Simplify(balances)

	nonzero := 0
	for _, b := range balances {
		if !b.IsZero() {
			nonzero++
		}
	}
	require.LessOrEqual(t, len(transfers), nonzero-1)

	replayed := mergeZeros(applyTransfers(transfers), balances)
	for id, want := range balances {
		require.True(t, replayed[id].Equal(want), "user %d: replayed %s, want %s", id, replayed[id], want)
	}
}

// mergeZeros pads the replayed map with the zero entries the transfers
// never touch, so it can be compared against the input wholesale.
func mergeZeros(replayed, original map[int64]decimal.Decimal) map[int64]decimal.Decimal {
	for id := range original {
		if _, ok := replayed[id]; !ok {
			replayed[id] = decimal.Zero
		}
	}
	return replayed
}

func TestSimplifyRoundTrip(t *testing.T) {
	cases := []map[int64]string{
		{1: "40.00", 2: "-40.00"},
		{1: "25.00", 2: "25.00", 3: "-50.00"},
		{1: "0.01", 2: "0.02", 3: "-0.03"},
		{1: "100.00", 2: "-33.33", 3: "-33.33", 4: "-33.34"},
		{1: "10.10", 2: "20.20", 3: "-30.30"},
	}

	for _, c := range cases {
		balances := balancesFrom(t, c)
		replayed := mergeZeros(applyTransfers(Simplify(balances)), balances)
		for id, want := range balances {
			require.True(t, replayed[id].Equal(want),
				"user %d: replayed %s, want %s (case %v)", id, replayed[id], want, c)
		}
	}
}

func TestSimplifyAllZeroYieldsEmpty(t *testing.T) {
	transfers := Simplify(balancesFrom(t, map[int64]string{1: "0.00", 2: "0.00"}))
	require.NotNil(t, transfers)
	require.Empty(t, transfers)
}

func TestSimplifyEmptyInput(t *testing.T) {
	transfers := Simplify(map[int64]decimal.Decimal{})
	require.NotNil(t, transfers)
	require.Empty(t, transfers)
}

func TestSimplifyOneSidedInputYieldsEmpty(t *testing.T) {
	// Corrupt (non-zero-summing) input with only creditors must not loop or
	// panic; the contract is an empty result.
	transfers := Simplify(balancesFrom(t, map[int64]string{1: "5.00", 2: "3.00"}))
	require.Empty(t, transfers)

	// Same for only debtors.
	transfers = Simplify(balancesFrom(t, map[int64]string{1: "-5.00", 2: "-3.00"}))
	require.Empty(t, transfers)
}

func TestSimplifyDeterministicOrdering(t *testing.T) {
	// Equal amounts: ties break on ascending user ID, so the pairing is
	// stable across runs despite map iteration order.
	for i := 0; i < 20; i++ {
		transfers := Simplify(balancesFrom(t, map[int64]string{
			3: "20.00", 1: "20.00", 2: "-20.00", 4: "-20.00",
		}))
		require.Len(t, transfers, 2)
		require.Equal(t, int64(2), transfers[0].FromUserID)
		require.Equal(t, int64(1), transfers[0].ToUserID)
		require.Equal(t, int64(4), transfers[1].FromUserID)
		require.Equal(t, int64(3), transfers[1].ToUserID)
	}
}

func TestSimplifyLargestPairsFirst(t *testing.T) {
	transfers := Simplify(balancesFrom(t, map[int64]string{
		1: "70.00",
		2: "10.00",
		3: "-60.00",
		4: "-20.00",
	}))

	require.Len(t, transfers, 3)
	// Largest creditor (1, +70) matches largest debtor (3, -60) first.
	require.Equal(t, int64(3), transfers[0].FromUserID)
	require.Equal(t, int64(1), transfers[0].ToUserID)
	require.Equal(t, "60.00", transfers[0].Amount.StringFixed(2))
}
