package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugolin/travellog/backend/internal/domain"
)

func TestExpenseNormalize_BaseCurrencyForcesRateToOne(t *testing.T) {
	e := domain.Expense{Item: "train", Amount: 500, Currency: domain.CurrencyTWD, ExchangeRate: 4.5, Category: domain.CategoryTransport}

	e.Normalize()

	assert.Equal(t, 1.0, e.ExchangeRate)
}

func TestExpenseNormalize_MissingRateDefaultsToOne(t *testing.T) {
	e := domain.Expense{Item: "ramen", Amount: 900, Currency: domain.CurrencyJPY, Category: domain.CategoryFood}

	e.Normalize()

	assert.Equal(t, 1.0, e.ExchangeRate)
}

func TestExpenseNormalize_ForeignRateKept(t *testing.T) {
	e := domain.Expense{Item: "hotel", Amount: 100, Currency: domain.CurrencyUSD, ExchangeRate: 31.5, Category: domain.CategoryAccommodation}

	e.Normalize()

	assert.Equal(t, 31.5, e.ExchangeRate)
}

func TestExpenseTotal_SumsConvertedAmounts(t *testing.T) {
	trip := domain.Trip{Expenses: []domain.Expense{
		{Item: "train", Amount: 500, Currency: domain.CurrencyTWD, ExchangeRate: 1, Category: domain.CategoryTransport},
		{Item: "ramen", Amount: 900, Currency: domain.CurrencyJPY, ExchangeRate: 0.21, Category: domain.CategoryFood},
	}}

	assert.InDelta(t, 500+900*0.21, trip.ExpenseTotal(), 1e-9)
}

func TestExpenseTotal_EmptyTripIsZero(t *testing.T) {
	assert.Zero(t, domain.Trip{}.ExpenseTotal())
}

func TestExpenseValidate(t *testing.T) {
	valid := domain.Expense{Item: "bus", Amount: 25, Currency: domain.CurrencyTWD, ExchangeRate: 1, Category: domain.CategoryTransport}
	require.NoError(t, valid.Validate())

	negative := valid
	negative.Amount = -5
	assert.ErrorIs(t, negative.Validate(), domain.ErrValidation)

	badCurrency := valid
	badCurrency.Currency = "GBP"
	assert.ErrorIs(t, badCurrency.Validate(), domain.ErrValidation)

	badCategory := valid
	badCategory.Category = "souvenirs"
	assert.ErrorIs(t, badCategory.Validate(), domain.ErrValidation)
}
