package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/auth"
	"github.com/HanzKay/KrasandApps-V1/internal/catalog"
	"github.com/HanzKay/KrasandApps-V1/internal/config"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type seedCategory struct {
	name          string
	discountClass string
	sortOrder     int32
}

var defaultCategories = []seedCategory{
	{name: "Food", discountClass: enum.DiscountClassFood, sortOrder: 1},
	{name: "Beverage", discountClass: enum.DiscountClassBeverage, sortOrder: 2},
}

func main() {
	// CLI flags
	email := flag.String("email", "", "Admin email address")
	name := flag.String("name", "", "Admin full name")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed dev token")
	flag.Parse()

	// Fall back to environment variables, then defaults
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}
	if *email == "" {
		*email = "admin@resto.local"
	}
	if *name == "" {
		*name = "Admin"
	}

	cfg := config.Load()
	if err := logger.Init(cfg.Server.Env); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		zap.L().Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		zap.L().Fatal("ping database", zap.Error(err))
	}

	// Admin and categories land together or not at all.
	tx, err := pool.Begin(ctx)
	if err != nil {
		zap.L().Fatal("begin transaction", zap.Error(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	adminID, err := seedAdmin(ctx, tx, *email, *name)
	if err != nil {
		zap.L().Fatal("seed admin", zap.Error(err))
	}
	for _, c := range defaultCategories {
		if err := seedCategoryRow(ctx, tx, c); err != nil {
			zap.L().Fatal("seed category", zap.String("name", c.name), zap.Error(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		zap.L().Fatal("commit", zap.Error(err))
	}

	if cfg.Server.Env == "production" {
		zap.L().Info("seed completed", zap.String("admin_id", adminID.String()))
		return
	}
	token, err := auth.GenerateToken(cfg.Auth.JWTSecret, adminID, *email, enum.RoleAdmin, *tokenTTL)
	if err != nil {
		zap.L().Fatal("mint dev token", zap.Error(err))
	}
	zap.L().Info("seed completed", zap.String("admin_id", adminID.String()))
	fmt.Println(token)
}

// seedAdmin creates the admin user unless the email is already taken.
func seedAdmin(ctx context.Context, tx pgx.Tx, email, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err == nil {
		zap.L().Info("admin already exists, skipping", zap.String("email", email))
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check user: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO users (email, name, role) VALUES ($1, $2, $3) RETURNING id`,
		email, name, enum.RoleAdmin,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}
	zap.L().Info("created admin", zap.String("email", email), zap.String("id", id.String()))
	return id, nil
}

func seedCategoryRow(ctx context.Context, tx pgx.Tx, c seedCategory) error {
	tag, err := tx.Exec(ctx,
		`INSERT INTO categories (name, slug, discount_class, sort_order)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (slug) DO NOTHING`,
		c.name, catalog.Slugify(c.name), c.discountClass, c.sortOrder,
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		zap.L().Info("category already exists, skipping", zap.String("name", c.name))
	}
	return nil
}
