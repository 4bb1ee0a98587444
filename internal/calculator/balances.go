package calculator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MemberBalance represents the net debt position of one participant.
type MemberBalance struct {
	Member     string
	NetBalance decimal.Decimal // Positive = owed money, Negative = owes money
	TotalOwed  decimal.Decimal // Amount others still owe this member
	TotalOwes  decimal.Decimal // Amount this member still owes others
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// SimplifyDebts folds outstanding (unpaid) pairs into net positions and
// returns the smallest set of transfers that clears them.
//
// Algorithm:
// - Each edge moves Amount from From's position to To's position
// - net_balance = total_owed - total_owes
// - Debtors are matched with creditors greedily, largest first
//
// Members and edges are returned in a deterministic order.
func SimplifyDebts(edges []DebtEdge) ([]MemberBalance, []DebtEdge) {
	balances := make(map[string]*MemberBalance)
	get := func(name string) *MemberBalance {
		if _, exists := balances[name]; !exists {
			balances[name] = &MemberBalance{
				Member:     name,
				NetBalance: decimal.Zero,
				TotalOwed:  decimal.Zero,
				TotalOwes:  decimal.Zero,
			}
		}
		return balances[name]
	}

	for _, e := range edges {
		if e.From == e.To || !e.Amount.IsPositive() {
			continue
		}
		get(e.From).TotalOwes = get(e.From).TotalOwes.Add(e.Amount)
		get(e.To).TotalOwed = get(e.To).TotalOwed.Add(e.Amount)
	}

	members := make([]MemberBalance, 0, len(balances))
	for _, bal := range balances {
		bal.NetBalance = bal.TotalOwed.Sub(bal.TotalOwes)
		members = append(members, *bal)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Member < members[j].Member })

	// Create lists of creditors (owed money) and debtors (owe money)
	var creditors, debtors []MemberBalance
	for _, bal := range members {
		if bal.NetBalance.IsPositive() {
			creditors = append(creditors, bal)
		} else if bal.NetBalance.IsNegative() {
			debtors = append(debtors, bal)
		}
	}
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].NetBalance.GreaterThan(creditors[j].NetBalance) })
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].NetBalance.LessThan(debtors[j].NetBalance) })

	debtorLeft := make([]decimal.Decimal, len(debtors))
	for i, d := range debtors {
		debtorLeft[i] = d.NetBalance.Neg() // Make positive
	}
	creditorLeft := make([]decimal.Decimal, len(creditors))
	for j, c := range creditors {
		creditorLeft[j] = c.NetBalance
	}

	// Greedy algorithm: match largest debts with largest credits
	var simplified []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtorLeft[i], creditorLeft[j])
		if amount.IsPositive() {
			simplified = append(simplified, DebtEdge{
				From:   debtors[i].Member,
				To:     creditors[j].Member,
				Amount: amount,
			})
		}

		debtorLeft[i] = debtorLeft[i].Sub(amount)
		creditorLeft[j] = creditorLeft[j].Sub(amount)

		// Move to next debtor/creditor if fully settled
		if debtorLeft[i].IsZero() {
			i++
		}
		if creditorLeft[j].IsZero() {
			j++
		}
	}

	return members, simplified
}
