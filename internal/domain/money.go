package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC(12,2): two decimal places, ten integer digits.
const moneyScale = 2

var moneyLimit = decimal.New(1, 10)

// moneyProblems reports amounts the money columns cannot store exactly.
func moneyProblems(field string, d decimal.Decimal) []string {
	var problems []string
	if !d.Equal(d.Truncate(moneyScale)) {
		problems = append(problems, fmt.Sprintf("%s must have at most %d decimal places", field, moneyScale))
	}
	if d.Abs().GreaterThanOrEqual(moneyLimit) {
		problems = append(problems, fmt.Sprintf("%s must be less than %s", field, moneyLimit))
	}
	return problems
}
