// Command kds is a terminal kitchen display. It polls open orders and
// redraws the queue on every refresh.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/client"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/logger"
	"go.uber.org/zap"
)

func main() {
	apiURL := flag.String("api", envOr("KDS_API_URL", "http://localhost:8081"), "API base URL")
	token := flag.String("token", os.Getenv("KDS_TOKEN"), "Bearer token for a kitchen or admin account")
	interval := flag.Duration("interval", client.DefaultPollInterval, "Refresh interval")
	flag.Parse()

	if err := logger.Init(envOr("ENV", "development")); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "kds: a token is required (-token or KDS_TOKEN)")
		os.Exit(2)
	}

	session := client.NewSession()
	session.Set(*token, nil)
	api := client.New(*apiURL, session)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := api.Me(ctx); err != nil {
		zap.L().Fatal("verify token", zap.Error(err))
	}

	board := &board{out: os.Stdout}
	poller := client.NewPoller([]client.Section{
		{Name: "orders", Fetch: func(ctx context.Context) error {
			orders, err := fetchOpenOrders(ctx, api)
			if err != nil {
				return err
			}
			board.update(orders, time.Now())
			return nil
		}},
	},
		client.WithInterval(*interval),
		client.WithOnError(func(section string, err error) {
			board.fail(err)
			if !client.IsRetryable(err) {
				zap.L().Error("refresh failed", zap.String("section", section), zap.Error(err))
			}
		}),
	)

	if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
		zap.L().Error("poller stopped", zap.Error(err))
	}
}

// pageSize matches the server's list ceiling.
const pageSize = 500

// openStatuses are the statuses the kitchen still has to act on.
var openStatuses = []string{enum.OrderStatusPending, enum.OrderStatusPreparing}

type orderLister interface {
	ListOrders(ctx context.Context, f client.OrderFilter) ([]client.Order, error)
}

// fetchOpenOrders lists every order in an open status, one status at a
// time and page by page, so a busy day of served orders cannot push an old
// ticket off the board.
func fetchOpenOrders(ctx context.Context, api orderLister) ([]client.Order, error) {
	var all []client.Order
	for _, status := range openStatuses {
		for offset := 0; ; offset += pageSize {
			page, err := api.ListOrders(ctx, client.OrderFilter{Status: status, Limit: pageSize, Offset: offset})
			if err != nil {
				return nil, fmt.Errorf("list %s orders: %w", status, err)
			}
			all = append(all, page...)
			if len(page) < pageSize {
				break
			}
		}
	}
	return all, nil
}

// board renders the kitchen queue: pending and preparing orders, oldest
// first.
type board struct {
	mu  sync.Mutex
	out io.Writer
}

func (b *board) update(orders []client.Order, now time.Time) {
	var queue []client.Order
	for _, o := range orders {
		if o.Status == enum.OrderStatusPending || o.Status == enum.OrderStatusPreparing {
			queue = append(queue, o)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i].CreatedAt.Before(queue[j].CreatedAt) })

	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprint(b.out, "\033[H\033[2J")
	fmt.Fprintf(b.out, "KITCHEN QUEUE  %s  (%d open)\n\n", now.Format("15:04:05"), len(queue))
	for _, o := range queue {
		fmt.Fprint(b.out, renderOrder(o, now))
	}
}

func (b *board) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.out, "\n! refresh failed: %v (retrying)\n", err)
}

func renderOrder(o client.Order, now time.Time) string {
	var sb strings.Builder
	where := o.OrderType
	if o.TableNumber != nil {
		where = fmt.Sprintf("table %d", *o.TableNumber)
	}
	age := now.Sub(o.CreatedAt).Truncate(time.Minute)
	fmt.Fprintf(&sb, "%-22s %-10s %-10s %s\n", o.OrderNumber, strings.ToUpper(o.Status), where, age)
	for _, it := range o.Items {
		fmt.Fprintf(&sb, "    %3d x %s\n", it.Quantity, it.ProductName)
	}
	if o.Notes != nil && *o.Notes != "" {
		fmt.Fprintf(&sb, "    note: %s\n", *o.Notes)
	}
	sb.WriteString("\n")
	return sb.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
