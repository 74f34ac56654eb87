// Package discount computes loyalty discounts for a cart.
//
// The same calculation backs the advisory preview shown at checkout and the
// authoritative figure stored on an order at commit time.
package discount

import (
	"encoding/json"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Item is one cart line. Bucket is enum.DiscountClassFood or
// enum.DiscountClassBeverage; anything else counts as food.
type Item struct {
	Price    decimal.Decimal
	Quantity int
	Bucket   string
}

// Benefit is a single percentage-off rule.
type Benefit struct {
	Type    string
	Percent decimal.Decimal
}

// Membership is a customer's membership as seen by the calculator.
type Membership struct {
	ID          uuid.UUID
	ProgramName string
	Status      string
	EndDate     *time.Time
	Benefits    []Benefit
}

// Eligible reports whether m is active and not past its end date.
func (m Membership) Eligible(now time.Time) bool {
	if m.Status != enum.MembershipStatusActive {
		return false
	}
	return m.EndDate == nil || !m.EndDate.Before(now)
}

// Info is the snapshot of an applied discount stored on an order.
type Info struct {
	MembershipID            uuid.UUID       `json:"membership_id"`
	ProgramName             string          `json:"program_name"`
	FoodDiscountPercent     decimal.Decimal `json:"food_discount_percent"`
	FoodDiscountAmount      decimal.Decimal `json:"food_discount_amount"`
	BeverageDiscountPercent decimal.Decimal `json:"beverage_discount_percent"`
	BeverageDiscountAmount  decimal.Decimal `json:"beverage_discount_amount"`
	TotalDiscount           decimal.Decimal `json:"total_discount"`
}

// MarshalJSON writes amounts with two decimal places.
func (i Info) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MembershipID            uuid.UUID `json:"membership_id"`
		ProgramName             string    `json:"program_name"`
		FoodDiscountPercent     string    `json:"food_discount_percent"`
		FoodDiscountAmount      string    `json:"food_discount_amount"`
		BeverageDiscountPercent string    `json:"beverage_discount_percent"`
		BeverageDiscountAmount  string    `json:"beverage_discount_amount"`
		TotalDiscount           string    `json:"total_discount"`
	}{
		MembershipID:            i.MembershipID,
		ProgramName:             i.ProgramName,
		FoodDiscountPercent:     i.FoodDiscountPercent.String(),
		FoodDiscountAmount:      i.FoodDiscountAmount.StringFixed(2),
		BeverageDiscountPercent: i.BeverageDiscountPercent.String(),
		BeverageDiscountAmount:  i.BeverageDiscountAmount.StringFixed(2),
		TotalDiscount:           i.TotalDiscount.StringFixed(2),
	})
}

// Breakdown is the result of Preview.
type Breakdown struct {
	Subtotal                decimal.Decimal
	FoodTotal               decimal.Decimal
	BeverageTotal           decimal.Decimal
	FoodDiscountPercent     decimal.Decimal
	FoodDiscountAmount      decimal.Decimal
	BeverageDiscountPercent decimal.Decimal
	BeverageDiscountAmount  decimal.Decimal
	TotalDiscount           decimal.Decimal
	FinalAmount             decimal.Decimal
	HasMembership           bool
	Info                    *Info // nil when TotalDiscount is zero
}

type best struct {
	percent decimal.Decimal
	source  *Membership
}

// offer keeps the first membership granting the highest percentage.
func (b *best) offer(p decimal.Decimal, m *Membership) {
	if b.source == nil || p.GreaterThan(b.percent) {
		b.percent = p
		b.source = m
	}
}

// Preview applies the best food and beverage benefit across all eligible
// memberships to the cart. It is deterministic in its inputs.
func Preview(items []Item, memberships []Membership, now time.Time) Breakdown {
	var b Breakdown
	for _, it := range items {
		line := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		b.Subtotal = b.Subtotal.Add(line)
		if it.Bucket == enum.DiscountClassBeverage {
			b.BeverageTotal = b.BeverageTotal.Add(line)
		} else {
			b.FoodTotal = b.FoodTotal.Add(line)
		}
	}

	var food, bev best
	for i := range memberships {
		m := &memberships[i]
		if !m.Eligible(now) {
			continue
		}
		b.HasMembership = true
		for _, bn := range m.Benefits {
			switch bn.Type {
			case enum.BenefitFoodDiscount:
				food.offer(clampPercent(bn.Percent), m)
			case enum.BenefitBeverageDiscount:
				bev.offer(clampPercent(bn.Percent), m)
			}
		}
	}

	b.FoodDiscountPercent = food.percent
	b.BeverageDiscountPercent = bev.percent
	b.FoodDiscountAmount = percentOf(b.FoodTotal, food.percent)
	b.BeverageDiscountAmount = percentOf(b.BeverageTotal, bev.percent)
	b.TotalDiscount = b.FoodDiscountAmount.Add(b.BeverageDiscountAmount)

	b.FinalAmount = b.Subtotal.Sub(b.TotalDiscount)
	if b.FinalAmount.IsNegative() {
		b.FinalAmount = decimal.Zero
	}

	if b.TotalDiscount.IsPositive() {
		src := food.source
		if src == nil || b.BeverageDiscountAmount.GreaterThan(b.FoodDiscountAmount) {
			src = bev.source
		}
		b.Info = &Info{
			MembershipID:            src.ID,
			ProgramName:             src.ProgramName,
			FoodDiscountPercent:     b.FoodDiscountPercent,
			FoodDiscountAmount:      b.FoodDiscountAmount,
			BeverageDiscountPercent: b.BeverageDiscountPercent,
			BeverageDiscountAmount:  b.BeverageDiscountAmount,
			TotalDiscount:           b.TotalDiscount,
		}
	}
	return b
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	if percent.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(percent).Div(hundred).Round(2)
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
