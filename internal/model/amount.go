package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of decimal places every stored amount keeps.
const AmountPlaces = 2

// CheckScale rejects an amount with more than AmountPlaces decimal places,
// which Postgres NUMERIC(12,2) would otherwise round on insert.
func CheckScale(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(AmountPlaces)) {
		return Invalid(field, fmt.Sprintf("%s must have at most %d decimal places", field, AmountPlaces))
	}
	return nil
}
