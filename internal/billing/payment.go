package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCreditCard, MethodBankTransfer:
		return true
	}
	return false
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown method %q", ErrInvalidPayment, s)
	}
	return m, nil
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: method must be a string", ErrInvalidPayment)
	}
	parsed, err := ParsePaymentMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Payment is one recorded settlement against an invoice. Payments are
// append-only.
type Payment struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Method      PaymentMethod   `json:"payment_method"`
	Description string          `json:"description,omitempty"`
	Reference   string          `json:"reference,omitempty"`
}

func NewPayment(amount decimal.Decimal, date time.Time, method PaymentMethod, description, reference string) (Payment, error) {
	if !amount.IsPositive() {
		return Payment{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidPayment)
	}
	if !HasScale(amount, MoneyPlaces) {
		return Payment{}, fmt.Errorf("%w: amount has more than %d decimals", ErrInvalidPayment, MoneyPlaces)
	}
	if !method.Valid() {
		return Payment{}, fmt.Errorf("%w: unknown method %q", ErrInvalidPayment, string(method))
	}
	if date.IsZero() {
		return Payment{}, fmt.Errorf("%w: payment date is required", ErrInvalidPayment)
	}
	return Payment{
		Amount:      amount,
		PaymentDate: date,
		Method:      method,
		Description: strings.TrimSpace(description),
		Reference:   strings.TrimSpace(reference),
	}, nil
}

// TotalPaid sums payment amounts. Order does not matter and non-positive
// amounts (which NewPayment never produces) are ignored.
func TotalPaid(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if p.Amount.IsPositive() {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

// Balance is the settlement position of a document. Outstanding and
// Overpaid are both clamped at zero; at most one of them is non-zero.
type Balance struct {
	Total       decimal.Decimal `json:"amount_including_tax"`
	Paid        decimal.Decimal `json:"total_paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Overpaid    decimal.Decimal `json:"overpaid"`
}

func ComputeBalance(total decimal.Decimal, payments []Payment) Balance {
	paid := Round(TotalPaid(payments))
	diff := total.Sub(paid)
	b := Balance{Total: total, Paid: paid, Outstanding: decimal.Zero, Overpaid: decimal.Zero}
	if diff.IsPositive() {
		b.Outstanding = diff
	} else if diff.IsNegative() {
		b.Overpaid = diff.Neg()
	}
	return b
}

// Settled reports whether payments cover a non-zero total.
func (b Balance) Settled() bool {
	return b.Total.IsPositive() && b.Paid.GreaterThanOrEqual(b.Total)
}
