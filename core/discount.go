package core

// DiscountPolicy bounds the conversion of points into a course discount.
// Values come from per-course configuration, never from package constants.
type DiscountPolicy struct {
	MaxPointsUsable       int64   `json:"max_points_usable"`
	PointsToDiscountRatio float64 `json:"points_to_discount_ratio"`
	MaxDiscountPercent    float64 `json:"max_discount_percent"`
}

// DefaultDiscountPolicy: up to 1000 points, 0.01% per point, capped at 50%.
func DefaultDiscountPolicy() DiscountPolicy {
	return DiscountPolicy{
		MaxPointsUsable:       1000,
		PointsToDiscountRatio: 0.01,
		MaxDiscountPercent:    50,
	}
}

// DiscountQuote is the bounded result of converting points into a price
// reduction. DiscountAmount never exceeds the course price and FinalPrice is
// never negative.
type DiscountQuote struct {
	PointsUsed      int64   `json:"points_used"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	FinalPrice      float64 `json:"final_price"`
}

// CalculateDiscount converts a point balance and course price into a bounded
// discount. Pure function, no side effects:
//
//	usable  = min(availablePoints, policy.MaxPointsUsable)
//	percent = min(usable * ratio, policy.MaxDiscountPercent)
//	amount  = min(price * percent / 100, price)
//	final   = price - amount
func CalculateDiscount(availablePoints int64, coursePrice float64, policy DiscountPolicy) DiscountQuote {
	usable := availablePoints
	if usable < 0 {
		usable = 0
	}
	if usable > policy.MaxPointsUsable {
		usable = policy.MaxPointsUsable
	}

	percent := float64(usable) * policy.PointsToDiscountRatio
	if percent > policy.MaxDiscountPercent {
		percent = policy.MaxDiscountPercent
	}
	if percent < 0 {
		percent = 0
	}

	amount := coursePrice * percent / 100
	if amount > coursePrice {
		amount = coursePrice
	}
	if amount < 0 {
		amount = 0
	}

	final := coursePrice - amount
	if final < 0 {
		final = 0
	}

	return DiscountQuote{
		PointsUsed:      usable,
		DiscountPercent: percent,
		DiscountAmount:  amount,
		FinalPrice:      final,
	}
}
