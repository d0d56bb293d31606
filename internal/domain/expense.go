package domain

import "fmt"

// Currency is an ISO-4217-ish currency code from the fixed set the journal
// supports. BaseCurrency is what aggregate totals are expressed in.
type Currency string

// Supported currencies.
const (
	CurrencyTWD Currency = "TWD"
	CurrencyJPY Currency = "JPY"
	CurrencyUSD Currency = "USD"
	CurrencyKRW Currency = "KRW"
	CurrencyEUR Currency = "EUR"
)

// BaseCurrency is the currency all expense totals are converted into.
const BaseCurrency = CurrencyTWD

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyTWD, CurrencyJPY, CurrencyUSD, CurrencyKRW, CurrencyEUR:
		return true
	}
	return false
}

// ExpenseCategory buckets an expense for aggregate display only; it carries
// no behavior beyond grouping.
type ExpenseCategory string

// Expense categories.
const (
	CategoryTransport     ExpenseCategory = "transport"
	CategoryAccommodation ExpenseCategory = "accommodation"
	CategoryFood          ExpenseCategory = "food"
	CategoryMisc          ExpenseCategory = "misc"
)

// Valid reports whether c is one of the known expense categories.
func (c ExpenseCategory) Valid() bool {
	switch c {
	case CategoryTransport, CategoryAccommodation, CategoryFood, CategoryMisc:
		return true
	}
	return false
}

// Expense is a single spend entry on a trip. ExchangeRate converts Amount
// into the base currency and is forced to 1 when Currency equals the base
// (see Normalize).
type Expense struct {
	ID           string          `json:"id"`
	Item         string          `json:"item"`
	Amount       float64         `json:"amount"`
	Currency     Currency        `json:"currency"`
	ExchangeRate float64         `json:"exchangeRate"`
	Category     ExpenseCategory `json:"category"`
}

// Normalize pins the exchange rate to 1 for base-currency expenses and
// defaults a missing rate to 1 so totals never multiply by zero.
func (e *Expense) Normalize() {
	if e.Currency == BaseCurrency || e.ExchangeRate <= 0 {
		e.ExchangeRate = 1
	}
}

// Validate checks the expense rules; violations wrap ErrValidation.
func (e Expense) Validate() error {
	if e.Amount <= 0 {
		return fmt.Errorf("%w: expense amount must be positive", ErrValidation)
	}
	if !e.Currency.Valid() {
		return fmt.Errorf("%w: unknown currency %q", ErrValidation, e.Currency)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown expense category %q", ErrValidation, e.Category)
	}
	return nil
}

// ConvertedAmount is the expense value in the base currency.
func (e Expense) ConvertedAmount() float64 {
	rate := e.ExchangeRate
	if e.Currency == BaseCurrency || rate <= 0 {
		rate = 1
	}
	return e.Amount * rate
}

// ExpenseTotal is the trip's aggregate spend in the base currency.
// It is always recomputed, never persisted.
func (t Trip) ExpenseTotal() float64 {
	var total float64
	for _, e := range t.Expenses {
		total += e.ConvertedAmount()
	}
	return total
}
