package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplifyDebts_NetsOpposingEdges(t *testing.T) {
	members, edges := SimplifyDebts([]DebtEdge{
		{From: "Bob", To: "Alice", Amount: dec("30")},
		{From: "Alice", To: "Bob", Amount: dec("10")},
	})

	require.Len(t, members, 2)
	assert.Equal(t, "Alice", members[0].Member)
	assert.True(t, members[0].NetBalance.Equal(dec("20")), "Alice net = %s", members[0].NetBalance)
	assert.True(t, members[1].NetBalance.Equal(dec("-20")), "Bob net = %s", members[1].NetBalance)

	require.Len(t, edges, 1)
	assert.Equal(t, "Bob", edges[0].From)
	assert.Equal(t, "Alice", edges[0].To)
	assert.True(t, edges[0].Amount.Equal(dec("20")))
}

func TestSimplifyDebts_CollapsesChains(t *testing.T) {
	// Charlie owes Bob, Bob owes Alice: Charlie can pay Alice directly.
	_, edges := SimplifyDebts([]DebtEdge{
		{From: "Charlie", To: "Bob", Amount: dec("15.50")},
		{From: "Bob", To: "Alice", Amount: dec("15.50")},
	})

	require.Len(t, edges, 1)
	assert.Equal(t, "Charlie", edges[0].From)
	assert.Equal(t, "Alice", edges[0].To)
	assert.True(t, edges[0].Amount.Equal(dec("15.50")))
}

func TestSimplifyDebts_PreservesTotals(t *testing.T) {
	in := []DebtEdge{
		{From: "B", To: "A", Amount: dec("20")},
		{From: "C", To: "A", Amount: dec("20")},
		{From: "C", To: "B", Amount: dec("5.25")},
		{From: "D", To: "B", Amount: dec("7.75")},
	}
	members, edges := SimplifyDebts(in)

	net := make(map[string]string)
	for _, m := range members {
		net[m.Member] = m.NetBalance.String()
	}
	assert.Equal(t, map[string]string{"A": "40", "B": "-7", "C": "-25.25", "D": "-7.75"}, net)

	paid := make(map[string]string)
	received := decimal.Zero
	for _, e := range edges {
		assert.True(t, e.Amount.IsPositive())
		paid[e.From] = e.Amount.Add(decOrZero(paid[e.From])).String()
		if e.To == "A" {
			received = received.Add(e.Amount)
		}
	}
	assert.True(t, received.Equal(dec("40")), "A receives %s", received)
	assert.Equal(t, "25.25", paid["C"])
}

func TestSimplifyDebts_IgnoresSelfAndEmptyEdges(t *testing.T) {
	members, edges := SimplifyDebts([]DebtEdge{
		{From: "A", To: "A", Amount: dec("5")},
		{From: "B", To: "A", Amount: dec("0")},
	})
	assert.Empty(t, members)
	assert.Empty(t, edges)
}

func decOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return dec(s)
}
