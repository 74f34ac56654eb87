package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/middleware"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeInternalError(w http.ResponseWriter, op string, err error) {
	zap.L().Error(op, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// isStaffRequest reports whether the request carries a staff token.
func isStaffRequest(r *http.Request) bool {
	claims := middleware.ClaimsFromContext(r.Context())
	return claims != nil && enum.IsStaff(claims.Role)
}

// --- Money ---

var (
	errNegativeAmount = errors.New("negative amount")
	errInvalidAmount  = errors.New("invalid amount")
)

// parseAmount parses a non-negative decimal string into a Numeric rounded to
// places decimals.
func parseAmount(s string, places int32) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, errInvalidAmount
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativeAmount
	}
	var n pgtype.Numeric
	if err := n.Scan(d.Round(places).String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

// amountError writes the 400 for a field that failed parseAmount.
func amountError(w http.ResponseWriter, field string, err error) {
	if errors.Is(err, errNegativeAmount) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": field + " must be >= 0"})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + field})
}

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

// formatMoney always renders two decimal places.
func formatMoney(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}

// formatQuantity renders stock quantities with three decimal places.
func formatQuantity(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(3)
}

// --- Nullable helpers ---

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// pagination reads limit/offset query params with a default and ceiling.
func pagination(r *http.Request, def, ceiling int32) (limit, offset int32, ok bool) {
	limit, offset = def, 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return 0, 0, false
		}
		if v > int(ceiling) {
			v = int(ceiling)
		}
		limit = int32(v)
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil || v < 0 {
			return 0, 0, false
		}
		offset = int32(v)
	}
	return limit, offset, true
}
