package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"prinprinan-bot/internal/config"
)

var ErrOrderNotFound = errors.New("order not found")

const statsCacheKey = "order_stats"

// Cache is the optional read-through cache in front of the statistics query.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type PostgresStorage struct {
	db     *sqlx.DB
	cache  Cache
	logger *zap.Logger
}

type Order struct {
	ID             int64       `db:"id"`
	OrderID        string      `db:"order_id"`
	InvoiceNumber  string      `db:"invoice_number"`
	ChatID         int64       `db:"chat_id"`
	CustomerName   string      `db:"customer_name"`
	CustomerNumber string      `db:"customer_number"`
	Total          int64       `db:"total"`
	CreatedAt      time.Time   `db:"created_at"`
	Items          []OrderItem `db:"-"`
}

type OrderItem struct {
	ID       int64  `db:"id"`
	OrderRef int64  `db:"order_ref"`
	Filename string `db:"filename"`
	Color    string `db:"color"`
	Pages    int    `db:"pages"`
	Copies   int    `db:"copies"`
	Cost     int64  `db:"cost"`
}

type OrderStatistics struct {
	TotalOrders  int   `db:"total_orders" json:"total_orders"`
	TotalRevenue int64 `db:"total_revenue" json:"total_revenue"`
	TodayOrders  int   `db:"today_orders" json:"today_orders"`
	TodayRevenue int64 `db:"today_revenue" json:"today_revenue"`
	WeekOrders   int   `db:"week_orders" json:"week_orders"`
	WeekRevenue  int64 `db:"week_revenue" json:"week_revenue"`
	MonthOrders  int   `db:"month_orders" json:"month_orders"`
	MonthRevenue int64 `db:"month_revenue" json:"month_revenue"`
}

func NewPostgresStorage(ctx context.Context, cfg config.DatabaseConfig, cache Cache, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	var db *sqlx.DB

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err := backoff.RetryNotify(
		func() error {
			conn, err := sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			if err := conn.PingContext(ctx); err != nil {
				_ = conn.Close()
				return fmt.Errorf("ping: %w", err)
			}
			db = conn
			return nil
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, next time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:     db,
		cache:  cache,
		logger: logger,
	}, nil
}

// DB exposes the underlying pool for migrations.
func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveOrder archives an accepted order with its items in one transaction.
func (s *PostgresStorage) SaveOrder(ctx context.Context, order Order) (int64, error) {
	const operation = "storage.SaveOrder"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin: %w", operation, err)
	}
	defer func() { _ = tx.Rollback() }()

	const orderQuery = `
		INSERT INTO print_orders (
			order_id, invoice_number, chat_id, customer_name,
			customer_number, total, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err = tx.QueryRowContext(ctx, orderQuery,
		order.OrderID,
		order.InvoiceNumber,
		order.ChatID,
		order.CustomerName,
		order.CustomerNumber,
		order.Total,
		order.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: insert order: %w", operation, err)
	}

	const itemQuery = `
		INSERT INTO print_order_items (order_ref, filename, color, pages, copies, cost)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			id, item.Filename, item.Color, item.Pages, item.Copies, item.Cost,
		); err != nil {
			return 0, fmt.Errorf("%s: insert item: %w", operation, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", operation, err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, statsCacheKey); err != nil {
			s.logger.Warn("Failed to invalidate statistics cache", zap.Error(err))
		}
	}
	return id, nil
}

// GetOrder looks an archived order up by the backend order id.
func (s *PostgresStorage) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	const operation = "storage.GetOrder"

	var order Order
	err := s.db.GetContext(ctx, &order, `
		SELECT id, order_id, invoice_number, chat_id, customer_name,
		       customer_number, total, created_at
		FROM print_orders
		WHERE order_id = $1
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", operation, ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	if err := s.db.SelectContext(ctx, &order.Items, `
		SELECT id, order_ref, filename, color, pages, copies, cost
		FROM print_order_items
		WHERE order_ref = $1
		ORDER BY id
	`, order.ID); err != nil {
		return nil, fmt.Errorf("%s: items: %w", operation, err)
	}
	return &order, nil
}

// ListOrders returns archived orders created at or after since, newest first.
func (s *PostgresStorage) ListOrders(ctx context.Context, since time.Time) ([]Order, error) {
	const operation = "storage.ListOrders"

	var orders []Order
	if err := s.db.SelectContext(ctx, &orders, `
		SELECT id, order_id, invoice_number, chat_id, customer_name,
		       customer_number, total, created_at
		FROM print_orders
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`, since); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	refs := make([]int64, len(orders))
	byRef := make(map[int64]*Order, len(orders))
	for i := range orders {
		refs[i] = orders[i].ID
		byRef[orders[i].ID] = &orders[i]
	}

	query, args, err := sqlx.In(`
		SELECT id, order_ref, filename, color, pages, copies, cost
		FROM print_order_items
		WHERE order_ref IN (?)
		ORDER BY id
	`, refs)
	if err != nil {
		return nil, fmt.Errorf("%s: build items query: %w", operation, err)
	}

	var items []OrderItem
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: items: %w", operation, err)
	}
	for _, item := range items {
		if o, ok := byRef[item.OrderRef]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return orders, nil
}

// GetOrderStatistics counts orders and revenue overall and for the current
// day, week and month as seen from now.
func (s *PostgresStorage) GetOrderStatistics(ctx context.Context, now time.Time) (*OrderStatistics, error) {
	const operation = "storage.GetOrderStatistics"

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, statsCacheKey); err == nil {
			var stats OrderStatistics
			if err := json.Unmarshal(cached, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	day, week, month := periodStarts(now)

	var stats OrderStatistics
	if err := s.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*)                                                  AS total_orders,
			COALESCE(SUM(total), 0)                                   AS total_revenue,
			COUNT(*) FILTER (WHERE created_at >= $1)                  AS today_orders,
			COALESCE(SUM(total) FILTER (WHERE created_at >= $1), 0)   AS today_revenue,
			COUNT(*) FILTER (WHERE created_at >= $2)                  AS week_orders,
			COALESCE(SUM(total) FILTER (WHERE created_at >= $2), 0)   AS week_revenue,
			COUNT(*) FILTER (WHERE created_at >= $3)                  AS month_orders,
			COALESCE(SUM(total) FILTER (WHERE created_at >= $3), 0)   AS month_revenue
		FROM print_orders
	`, day, week, month); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, data, 5*time.Minute); err != nil {
				s.logger.Warn("Failed to cache statistics", zap.Error(err))
			}
		}
	}
	return &stats, nil
}

// periodStarts returns midnight today, midnight of this week's Monday and
// midnight of the first of the month, in now's location.
func periodStarts(now time.Time) (day, week, month time.Time) {
	day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(day.Weekday()) + 6) % 7
	week = day.AddDate(0, 0, -offset)
	month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return day, week, month
}
