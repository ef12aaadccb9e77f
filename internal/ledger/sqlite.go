package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS app_user (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS customer (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	full_name TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sale (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_id INTEGER NOT NULL REFERENCES customer(id),
	purchase_date TEXT NOT NULL,
	payment_due_date TEXT NOT NULL DEFAULT '',
	delivery_date TEXT NOT NULL DEFAULT '',
	delivery_address TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sale_item (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sale_id INTEGER NOT NULL REFERENCES sale(id) ON DELETE CASCADE,
	product_code TEXT NOT NULL DEFAULT '',
	jewel_type TEXT NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 1,
	unit_price REAL NOT NULL,
	photo_url TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payment (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sale_id INTEGER NOT NULL REFERENCES sale(id) ON DELETE CASCADE,
	amount REAL NOT NULL,
	paid_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sale_customer ON sale(customer_id);
CREATE INDEX IF NOT EXISTS idx_sale_item_sale ON sale_item(sale_id);
CREATE INDEX IF NOT EXISTS idx_payment_sale ON payment(sale_id);
`

// SQLiteStore is a SQLite-backed implementation of Store.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	if username == "" {
		return User{}, errors.New("username is required")
	}
	user := User{Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().Unix()}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO app_user (username, password_hash, created_at) VALUES (?, ?, ?)
	`, username, passwordHash, user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	user.ID, err = result.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("create user id: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM app_user WHERE username = ?
	`, username)
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) CreateCustomer(ctx context.Context, create CustomerCreate) (Customer, error) {
	if create.FullName == "" {
		return Customer{}, errors.New("full_name is required")
	}
	customer := Customer{FullName: create.FullName, Phone: create.Phone, CreatedAt: time.Now().Unix()}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO customer (full_name, phone, created_at) VALUES (?, ?, ?)
	`, create.FullName, create.Phone, customer.CreatedAt)
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	customer.ID, err = result.LastInsertId()
	if err != nil {
		return Customer{}, fmt.Errorf("create customer id: %w", err)
	}
	return customer, nil
}

func (s *SQLiteStore) ListCustomers(ctx context.Context, page, pageSize int, search string) ([]Customer, int64, error) {
	offset, limit := pageBounds(page, pageSize)
	filter := "%" + strings.ToLower(search) + "%"

	var total int64
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM customer WHERE ? = '%%' OR LOWER(full_name) LIKE ?
	`, filter, filter)
	if err := row.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, phone, created_at FROM customer
		WHERE ? = '%%' OR LOWER(full_name) LIKE ?
		ORDER BY id DESC LIMIT ? OFFSET ?
	`, filter, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	customers := make([]Customer, 0)
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.FullName, &c.Phone, &c.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, total, nil
}

func (s *SQLiteStore) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, phone, created_at FROM customer WHERE id = ?
	`, id)
	var c Customer
	err := row.Scan(&c.ID, &c.FullName, &c.Phone, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) CreateSale(ctx context.Context, create SaleCreate) (Sale, error) {
	if create.DeliveryAddress == "" {
		return Sale{}, errors.New("delivery_address is required")
	}
	if len(create.Items) == 0 {
		return Sale{}, errors.New("at least one item is required")
	}
	if _, err := s.GetCustomer(ctx, create.CustomerID); err != nil {
		return Sale{}, fmt.Errorf("customer %d: %w", create.CustomerID, err)
	}

	purchaseDate := create.PurchaseDate
	if purchaseDate == "" {
		purchaseDate = time.Now().Format("2006-01-02")
	}
	now := time.Now().Unix()

	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Sale{}, fmt.Errorf("begin tx: %w", err)
	}
	result, err := transaction.ExecContext(ctx, `
		INSERT INTO sale (customer_id, purchase_date, payment_due_date, delivery_date, delivery_address, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, create.CustomerID, purchaseDate, create.PaymentDueDate, create.DeliveryDate, create.DeliveryAddress, create.Notes, now)
	if err != nil {
		_ = transaction.Rollback()
		return Sale{}, fmt.Errorf("insert sale: %w", err)
	}
	saleID, err := result.LastInsertId()
	if err != nil {
		_ = transaction.Rollback()
		return Sale{}, fmt.Errorf("insert sale id: %w", err)
	}

	stmt, err := transaction.PrepareContext(ctx, `
		INSERT INTO sale_item (sale_id, product_code, jewel_type, quantity, unit_price, photo_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = transaction.Rollback()
		return Sale{}, fmt.Errorf("prepare items: %w", err)
	}
	defer stmt.Close()

	for _, item := range create.Items {
		if item.JewelType == "" || item.UnitPrice <= 0 {
			_ = transaction.Rollback()
			return Sale{}, fmt.Errorf("invalid sale item: jewel_type=%q unit_price=%v", item.JewelType, item.UnitPrice)
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		if _, err := stmt.ExecContext(ctx, saleID, item.ProductCode, item.JewelType, quantity, item.UnitPrice, item.PhotoURL, now); err != nil {
			_ = transaction.Rollback()
			return Sale{}, fmt.Errorf("insert sale item: %w", err)
		}
	}
	if err := transaction.Commit(); err != nil {
		return Sale{}, fmt.Errorf("commit sale: %w", err)
	}
	return s.GetSale(ctx, saleID)
}

func (s *SQLiteStore) ListSales(ctx context.Context, page, pageSize int, customerID int64) ([]Sale, int64, error) {
	offset, limit := pageBounds(page, pageSize)

	var total int64
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sale WHERE ? = 0 OR customer_id = ?
	`, customerID, customerID)
	if err := row.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, purchase_date, payment_due_date, delivery_date, delivery_address, notes, created_at
		FROM sale
		WHERE ? = 0 OR customer_id = ?
		ORDER BY id DESC LIMIT ? OFFSET ?
	`, customerID, customerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	sales := make([]Sale, 0)
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(&sale.ID, &sale.CustomerID, &sale.PurchaseDate, &sale.PaymentDueDate,
			&sale.DeliveryDate, &sale.DeliveryAddress, &sale.Notes, &sale.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, total, nil
}

func (s *SQLiteStore) GetSale(ctx context.Context, id int64) (Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, purchase_date, payment_due_date, delivery_date, delivery_address, notes, created_at
		FROM sale WHERE id = ?
	`, id)
	var sale Sale
	err := row.Scan(&sale.ID, &sale.CustomerID, &sale.PurchaseDate, &sale.PaymentDueDate,
		&sale.DeliveryDate, &sale.DeliveryAddress, &sale.Notes, &sale.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	if err != nil {
		return Sale{}, fmt.Errorf("get sale: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, product_code, jewel_type, quantity, unit_price, photo_url, created_at
		FROM sale_item WHERE sale_id = ? ORDER BY id ASC
	`, id)
	if err != nil {
		return Sale{}, fmt.Errorf("query sale items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductCode, &item.JewelType,
			&item.Quantity, &item.UnitPrice, &item.PhotoURL, &item.CreatedAt); err != nil {
			return Sale{}, fmt.Errorf("scan sale item: %w", err)
		}
		sale.Items = append(sale.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Sale{}, fmt.Errorf("iterate sale items: %w", err)
	}
	return sale, nil
}

func (s *SQLiteStore) CreatePayment(ctx context.Context, create PaymentCreate) (Payment, error) {
	if create.Amount <= 0 {
		return Payment{}, errors.New("amount must be positive")
	}
	if _, err := s.GetSale(ctx, create.SaleID); err != nil {
		return Payment{}, fmt.Errorf("sale %d: %w", create.SaleID, err)
	}
	now := time.Now().Unix()
	payment := Payment{SaleID: create.SaleID, Amount: create.Amount, PaidAt: now, CreatedAt: now}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO payment (sale_id, amount, paid_at, created_at) VALUES (?, ?, ?, ?)
	`, create.SaleID, create.Amount, now, now)
	if err != nil {
		return Payment{}, fmt.Errorf("create payment: %w", err)
	}
	payment.ID, err = result.LastInsertId()
	if err != nil {
		return Payment{}, fmt.Errorf("create payment id: %w", err)
	}
	return payment, nil
}

func (s *SQLiteStore) ListPayments(ctx context.Context, page, pageSize int, saleID int64) ([]Payment, int64, error) {
	offset, limit := pageBounds(page, pageSize)

	var total int64
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM payment WHERE ? = 0 OR sale_id = ?
	`, saleID, saleID)
	if err := row.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, amount, paid_at, created_at
		FROM payment
		WHERE ? = 0 OR sale_id = ?
		ORDER BY id DESC LIMIT ? OFFSET ?
	`, saleID, saleID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Amount, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, total, nil
}

func (s *SQLiteStore) KPIs(ctx context.Context) (KPIs, error) {
	var kpis KPIs
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sale),
			(SELECT COALESCE(SUM(quantity * unit_price), 0) FROM sale_item),
			(SELECT COALESCE(SUM(amount), 0) FROM payment),
			(SELECT COUNT(*) FROM customer)
	`)
	if err := row.Scan(&kpis.TotalSales, &kpis.TotalSold, &kpis.TotalPaid, &kpis.TotalCustomers); err != nil {
		return KPIs{}, fmt.Errorf("kpis: %w", err)
	}
	kpis.TotalPending = kpis.TotalSold - kpis.TotalPaid
	return kpis, nil
}

func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
