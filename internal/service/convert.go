package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/discount"
	"github.com/HanzKay/KrasandApps-V1/internal/membership"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// decimalToNumeric3 keeps the precision of stock quantities.
func decimalToNumeric3(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(3))
	return n
}

func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func optionalUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func timestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// splitMemberships converts stored memberships for the discount calculator,
// separating out the ones whose end date has passed.
func splitMemberships(rows []database.Membership, now time.Time) ([]discount.Membership, []uuid.UUID, error) {
	var live []discount.Membership
	var lapsed []uuid.UUID
	for _, m := range rows {
		var end *time.Time
		if m.EndDate.Valid {
			t := m.EndDate.Time
			end = &t
		}
		if membership.IsExpired(end, now) {
			lapsed = append(lapsed, m.ID)
			continue
		}

		var benefits []membership.Benefit
		if len(m.Benefits) > 0 {
			if err := json.Unmarshal(m.Benefits, &benefits); err != nil {
				return nil, nil, fmt.Errorf("decode benefits of membership %s: %w", m.ID, err)
			}
		}
		dm := discount.Membership{
			ID:          m.ID,
			ProgramName: m.ProgramName,
			Status:      m.Status,
			EndDate:     end,
			Benefits:    make([]discount.Benefit, len(benefits)),
		}
		for i, b := range benefits {
			dm.Benefits[i] = discount.Benefit{Type: b.BenefitType, Percent: b.Value}
		}
		live = append(live, dm)
	}
	return live, lapsed, nil
}
