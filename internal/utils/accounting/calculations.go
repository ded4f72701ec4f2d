package accounting

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MoneyPlaces is the number of decimal places money is stored with.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to two places, the "standard" rounding used on
// every stored amount.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}

// ExcludeGST backs GST out of a GST-inclusive amount. A non-positive rate returns the
// amount unchanged.
func ExcludeGST(amount, gstRatePct decimal.Decimal) decimal.Decimal {
	if !gstRatePct.IsPositive() {
		return amount
	}
	divisor := decimal.NewFromInt(1).Add(gstRatePct.Div(hundred))
	return amount.Div(divisor)
}

// CalculateCommission converts a sale into a commission amount:
// (sale excluding GST) * rate / 100, rounded to cents. The intermediate value is kept at
// full precision so rounding happens once.
func CalculateCommission(saleAmount, commissionRatePct, gstRatePct decimal.Decimal) decimal.Decimal {
	base := ExcludeGST(saleAmount, gstRatePct)
	return RoundMoney(base.Mul(commissionRatePct).Div(hundred))
}

// SumAmounts adds amounts exactly.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
