package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts ledger activity.
type Metrics struct {
	ExpensesRecorded  prometheus.Counter
	ExpensesRejected  *prometheus.CounterVec
	PairsSettled      *prometheus.CounterVec
	AmountTransferred prometheus.Counter
}

// NewMetrics creates the ledger collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExpensesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "splitwallet",
			Subsystem: "ledger",
			Name:      "expenses_recorded_total",
			Help:      "Expenses committed after debiting the payer.",
		}),
		ExpensesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitwallet",
			Subsystem: "ledger",
			Name:      "expenses_rejected_total",
			Help:      "Expenses refused before any balance changed.",
		}, []string{"reason"}),
		PairsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitwallet",
			Subsystem: "ledger",
			Name:      "pairs_settled_total",
			Help:      "Beneficiary to payer pairs evaluated by Settle, by outcome.",
		}, []string{"outcome"}),
		AmountTransferred: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "splitwallet",
			Subsystem: "ledger",
			Name:      "amount_transferred_total",
			Help:      "Sum of shares moved from beneficiaries to payers.",
		}),
	}
}

const (
	outcomePaid        = "paid"
	outcomeAlreadyPaid = "already_paid"
	outcomeUnpaid      = "unpaid"

	reasonValidation        = "validation"
	reasonInsufficientFunds = "insufficient_funds"
)
