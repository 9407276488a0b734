package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// deviation returns |cur - prev| / prev in exact decimal arithmetic so that
// threshold comparisons at the boundary are not at the mercy of float rounding.
func deviation(prev, cur float64) (decimal.Decimal, bool) {
	if prev <= 0 {
		return decimal.Zero, false
	}
	p := decimal.NewFromFloat(prev)
	c := decimal.NewFromFloat(cur)
	return c.Sub(p).Abs().Div(p), true
}

func describeDeviation(dev decimal.Decimal, prev, cur, threshold float64) string {
	return fmt.Sprintf("pct=%s prev=%s new=%s threshold=%s",
		dev.StringFixed(4),
		decimal.NewFromFloat(prev).String(),
		decimal.NewFromFloat(cur).String(),
		decimal.NewFromFloat(threshold).String(),
	)
}
