// README: Common money value object used across modules.
package types

// DefaultCurrency is the currency fares are quoted in.
const DefaultCurrency = "PHP"

// Money is an amount in whole currency units.
type Money struct {
	Amount   int64
	Currency string
}

func PHP(amount int64) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}
