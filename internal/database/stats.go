package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getAdminStats = `-- name: GetAdminStats :one
SELECT
    (SELECT count(*) FROM users) AS users_count,
    (SELECT count(*) FROM orders) AS orders_count,
    (SELECT count(*) FROM products) AS products_count,
    (SELECT count(*) FROM dining_tables) AS tables_count,
    (SELECT count(*) FROM orders WHERE status = 'pending') AS pending_orders,
    (SELECT count(*) FROM orders WHERE status = 'completed') AS completed_orders,
    (SELECT coalesce(sum(total_amount), 0) FROM orders WHERE payment_status = 'paid')::numeric AS total_revenue,
    (SELECT count(*) FROM memberships WHERE status = 'active') AS active_memberships,
    (SELECT count(*) FROM loyalty_programs) AS programs_count,
    (SELECT count(*) FROM ingredients WHERE current_stock <= min_stock) AS low_stock_ingredients,
    (SELECT count(*) FROM dining_tables WHERE status = 'occupied') AS occupied_tables
`

type GetAdminStatsRow struct {
	UsersCount          int64          `json:"users_count"`
	OrdersCount         int64          `json:"orders_count"`
	ProductsCount       int64          `json:"products_count"`
	TablesCount         int64          `json:"tables_count"`
	PendingOrders       int64          `json:"pending_orders"`
	CompletedOrders     int64          `json:"completed_orders"`
	TotalRevenue        pgtype.Numeric `json:"total_revenue"`
	ActiveMemberships   int64          `json:"active_memberships"`
	ProgramsCount       int64          `json:"programs_count"`
	LowStockIngredients int64          `json:"low_stock_ingredients"`
	OccupiedTables      int64          `json:"occupied_tables"`
}

func (q *Queries) GetAdminStats(ctx context.Context) (GetAdminStatsRow, error) {
	row := q.db.QueryRow(ctx, getAdminStats)
	var i GetAdminStatsRow
	err := row.Scan(
		&i.UsersCount,
		&i.OrdersCount,
		&i.ProductsCount,
		&i.TablesCount,
		&i.PendingOrders,
		&i.CompletedOrders,
		&i.TotalRevenue,
		&i.ActiveMemberships,
		&i.ProgramsCount,
		&i.LowStockIngredients,
		&i.OccupiedTables,
	)
	return i, err
}
