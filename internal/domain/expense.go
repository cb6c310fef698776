package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseType classifies a cost incurred on a trip.
type ExpenseType string

const (
	ExpenseFuel    ExpenseType = "FUEL"
	ExpenseToll    ExpenseType = "TOLL"
	ExpenseFood    ExpenseType = "FOOD"
	ExpenseLodging ExpenseType = "LODGING"
	ExpenseFine    ExpenseType = "FINE"
	ExpenseOther   ExpenseType = "OTHER"
)

var expenseTypes = map[string]ExpenseType{
	"FUEL": ExpenseFuel, "COMBUSTIBLE": ExpenseFuel,
	"TOLL": ExpenseToll, "PEAJE": ExpenseToll,
	"FOOD": ExpenseFood, "ALIMENTACION": ExpenseFood,
	"LODGING": ExpenseLodging, "HOSPEDAJE": ExpenseLodging,
	"FINE": ExpenseFine, "MULTA": ExpenseFine,
	"OTHER": ExpenseOther, "OTRO": ExpenseOther,
}

// ParseExpenseType accepts canonical and legacy spellings.
func ParseExpenseType(s string) (ExpenseType, error) {
	if t, ok := expenseTypes[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", &ValidationError{Problems: []string{
		fmt.Sprintf("unknown expense type %q (allowed: FUEL, TOLL, FOOD, LODGING, FINE, OTHER)", s),
	}}
}

// IsValid reports whether t is a canonical expense type.
func (t ExpenseType) IsValid() bool {
	switch t {
	case ExpenseFuel, ExpenseToll, ExpenseFood, ExpenseLodging, ExpenseFine, ExpenseOther:
		return true
	default:
		return false
	}
}

// PaymentMethod is how an expense was paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentCard     PaymentMethod = "CARD"
)

var paymentMethods = map[string]PaymentMethod{
	"CASH": PaymentCash, "EFECTIVO": PaymentCash,
	"TRANSFER": PaymentTransfer, "TRANSFERENCIA": PaymentTransfer,
	"CARD": PaymentCard, "TARJETA": PaymentCard,
}

// ParsePaymentMethod accepts canonical and legacy spellings.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	if m, ok := paymentMethods[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", &ValidationError{Problems: []string{
		fmt.Sprintf("unknown payment method %q (allowed: CASH, TRANSFER, CARD)", s),
	}}
}

// IsValid reports whether m is a canonical payment method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentCard:
		return true
	default:
		return false
	}
}

// Receipt points at a proof of payment held by the blob store.
type Receipt struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
}

// ExpenseEntry is one cost booked against a trip.
type ExpenseEntry struct {
	ID            int64           `json:"id"`
	TripID        int64           `json:"viajeId"`
	Type          ExpenseType     `json:"tipo"`
	Amount        decimal.Decimal `json:"monto"`
	Date          time.Time       `json:"fecha"`
	PaymentMethod PaymentMethod   `json:"metodoPago"`
	Description   string          `json:"descripcion,omitempty"`
	Receipt       *Receipt        `json:"comprobante,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// NewExpense carries the fields accepted when an expense is booked.
type NewExpense struct {
	Type          ExpenseType
	Amount        decimal.Decimal
	Date          time.Time
	PaymentMethod PaymentMethod
	Description   string
}

// Problems lists every violated rule of the new expense.
func (n NewExpense) Problems() []string {
	var problems []string
	if !n.Type.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown expense type %q", n.Type))
	}
	if n.Amount.IsNegative() {
		problems = append(problems, "amount must not be negative")
	}
	problems = append(problems, moneyProblems("amount", n.Amount)...)
	if n.Date.IsZero() {
		problems = append(problems, "date is required")
	}
	if !n.PaymentMethod.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown payment method %q", n.PaymentMethod))
	}
	return problems
}

// ReceiptUpload is a receipt file received with a new expense.
type ReceiptUpload struct {
	Filename string
	Body     []byte
}
