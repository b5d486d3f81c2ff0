package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/storage"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/VITperson/batumi-lunch-site2/internal/types/window"
	"github.com/shopspring/decimal"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStorage struct {
	db *sql.DB
}

var _ storage.Storage = (*PostgresStorage)(nil)

func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &PostgresStorage{db: db}

	// проверяем, что БД жива
	if err := s.db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	// создаём таблицы
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStorage) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS menu_weeks (
            id SERIAL PRIMARY KEY,
            week_start DATE UNIQUE NOT NULL,
            title TEXT NOT NULL DEFAULT '',
            is_published BOOLEAN NOT NULL DEFAULT FALSE,
            order_deadline_hour INT NOT NULL DEFAULT 10,
            base_price NUMERIC(10,2) NOT NULL DEFAULT 15
        )`,
		`CREATE TABLE IF NOT EXISTS day_offers (
            id SERIAL PRIMARY KEY,
            menu_week_id INT NOT NULL REFERENCES menu_weeks(id) ON DELETE CASCADE,
            day_of_week TEXT NOT NULL,
            items JSONB NOT NULL DEFAULT '[]',
            calories INT,
            price NUMERIC(10,2),
            status TEXT NOT NULL DEFAULT 'available',
            sold_out BOOLEAN NOT NULL DEFAULT FALSE,
            portion_limit INT,
            UNIQUE (menu_week_id, day_of_week)
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id SERIAL PRIMARY KEY,
            order_code TEXT UNIQUE NOT NULL,
            customer_id BIGINT NOT NULL,
            delivery_date DATE NOT NULL,
            day_of_week TEXT NOT NULL,
            count INT NOT NULL,
            items JSONB NOT NULL DEFAULT '[]',
            price NUMERIC(10,2) NOT NULL,
            total NUMERIC(10,2) NOT NULL,
            status TEXT NOT NULL,
            delivery_week_start DATE,
            is_next_week BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ
        )`,
		`CREATE INDEX IF NOT EXISTS orders_customer_idx ON orders (customer_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS order_window (
            id INT PRIMARY KEY CHECK (id = 1),
            next_week_enabled BOOLEAN NOT NULL,
            week_start DATE
        )`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) GetMenuWeek(ctx context.Context, weekStart time.Time) (*menu.MenuWeek, error) {
	const q = `
    SELECT id, week_start, title, is_published, order_deadline_hour, base_price
    FROM menu_weeks WHERE week_start = $1`
	var w menu.MenuWeek
	err := s.db.QueryRowContext(ctx, q, weekStart).
		Scan(&w.ID, &w.WeekStart, &w.Title, &w.IsPublished, &w.DeadlineHour, &w.BasePrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.WeekStart = dateUTC(w.WeekStart)
	return &w, nil
}

func (s *PostgresStorage) ListDayOffers(ctx context.Context, menuWeekID int64) ([]menu.DayOffer, error) {
	const q = `
        SELECT id, menu_week_id, day_of_week, items, calories, price, status, sold_out, portion_limit
        FROM day_offers
        WHERE menu_week_id = $1`
	rows, err := s.db.QueryContext(ctx, q, menuWeekID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []menu.DayOffer
	for rows.Next() {
		var (
			o            menu.DayOffer
			day          string
			items        []byte
			calories     sql.NullInt64
			portionLimit sql.NullInt64
		)
		if err := rows.Scan(&o.ID, &o.MenuWeekID, &day, &items, &calories, &o.Price, &o.Status, &o.SoldOut, &portionLimit); err != nil {
			return nil, err
		}
		if o.Day, err = menu.ParseWeekday(day); err != nil {
			return nil, fmt.Errorf("day offer %d: %w", o.ID, err)
		}
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("day offer %d items: %w", o.ID, err)
		}
		if calories.Valid {
			c := int(calories.Int64)
			o.Calories = &c
		}
		if portionLimit.Valid {
			l := int(portionLimit.Int64)
			o.PortionLimit = &l
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) CreateOrder(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	q := `
        INSERT INTO orders (order_code, customer_id, delivery_date, day_of_week, count, items,
                            price, total, status, delivery_week_start, is_next_week, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`
	return s.db.QueryRowContext(ctx, q,
		o.Code, o.CustomerID, o.DeliveryDate, o.Day.String(), o.Count, items,
		o.UnitPrice, o.Total, o.Status, o.DeliveryWeekStart, o.NextWeek, o.CreatedAt,
	).Scan(&o.ID)
}

const orderColumns = `id, order_code, customer_id, delivery_date, day_of_week, count, items,
        price, total, status, delivery_week_start, is_next_week, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (order.Order, error) {
	var (
		o         order.Order
		day       string
		items     []byte
		weekStart sql.NullTime
		updatedAt sql.NullTime
	)
	if err := row.Scan(&o.ID, &o.Code, &o.CustomerID, &o.DeliveryDate, &day, &o.Count, &items,
		&o.UnitPrice, &o.Total, &o.Status, &weekStart, &o.NextWeek, &o.CreatedAt, &updatedAt); err != nil {
		return o, err
	}
	var err error
	if o.Day, err = menu.ParseWeekday(day); err != nil {
		return o, fmt.Errorf("order %d: %w", o.ID, err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("order %d items: %w", o.ID, err)
	}
	o.DeliveryDate = dateUTC(o.DeliveryDate)
	if weekStart.Valid {
		ws := dateUTC(weekStart.Time)
		o.DeliveryWeekStart = &ws
	}
	if updatedAt.Valid {
		o.UpdatedAt = &updatedAt.Time
	}
	return o, nil
}

func (s *PostgresStorage) FindOrder(ctx context.Context, id int64) (*order.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStorage) listOrders(ctx context.Context, q string, args ...any) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) ListOrdersByUser(ctx context.Context, customerID int64) ([]order.Order, error) {
	q := `SELECT ` + orderColumns + `
        FROM orders
        WHERE customer_id = $1
        ORDER BY created_at DESC`
	return s.listOrders(ctx, q, customerID)
}

func (s *PostgresStorage) ListActiveOrders(ctx context.Context, customerID int64) ([]order.Order, error) {
	q := `SELECT ` + orderColumns + `
        FROM orders
        WHERE customer_id = $1 AND status NOT IN ('cancelled','cancelled_by_user')
        ORDER BY created_at DESC`
	return s.listOrders(ctx, q, customerID)
}

func (s *PostgresStorage) ListOrdersByWeek(ctx context.Context, weekStart, legacyFrom, legacyTo time.Time) ([]order.Order, error) {
	q := `SELECT ` + orderColumns + `
        FROM orders
        WHERE delivery_week_start = $1
           OR (delivery_week_start IS NULL AND created_at >= $2 AND created_at < $3)
        ORDER BY created_at DESC`
	return s.listOrders(ctx, q, weekStart, legacyFrom, legacyTo)
}

func (s *PostgresStorage) UpdateOrderStatus(ctx context.Context, id int64, status order.OrderStatus) (bool, error) {
	const q = `UPDATE orders SET status = $1 WHERE id = $2`
	res, err := s.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStorage) UpdateOrderCount(ctx context.Context, id int64, count int, total decimal.Decimal, updatedAt time.Time) error {
	const q = `
        UPDATE orders
        SET count = $1,
            total = $2,
            updated_at = $3
        WHERE id = $4
    `
	res, err := s.db.ExecContext(ctx, q, count, total, updatedAt, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) GetWindowState(ctx context.Context) (window.State, error) {
	const q = `SELECT next_week_enabled, week_start FROM order_window WHERE id = 1`
	var (
		st        window.State
		weekStart sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, q).Scan(&st.Enabled, &weekStart)
	if errors.Is(err, sql.ErrNoRows) {
		return window.Disabled(), nil
	}
	if err != nil {
		return window.State{}, err
	}
	if weekStart.Valid {
		ws := dateUTC(weekStart.Time)
		st.WeekStart = &ws
	}
	return st, nil
}

func (s *PostgresStorage) SetWindowState(ctx context.Context, st window.State) error {
	const q = `
        INSERT INTO order_window (id, next_week_enabled, week_start)
        VALUES (1, $1, $2)
        ON CONFLICT (id) DO UPDATE
        SET next_week_enabled = EXCLUDED.next_week_enabled,
            week_start = EXCLUDED.week_start`
	var weekStart any
	if st.Enabled && st.WeekStart != nil {
		weekStart = *st.WeekStart
	}
	_, err := s.db.ExecContext(ctx, q, st.Enabled, weekStart)
	return err
}

// DATE columns come back at midnight in the session zone.
func dateUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
