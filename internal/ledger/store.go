package ledger

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a referenced record does not exist. Handlers
// map it to 404 for lookups and 400 for stale references on writes.
var ErrNotFound = errors.New("not found")

// Store defines the persistence contract for the ledger API.
type Store interface {
	Init(ctx context.Context) error
	Close() error

	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)

	CreateCustomer(ctx context.Context, create CustomerCreate) (Customer, error)
	// ListCustomers pages through customers, optionally filtered by a
	// case-insensitive name search. Returns the page and the total count.
	ListCustomers(ctx context.Context, page, pageSize int, search string) ([]Customer, int64, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)

	// CreateSale stores the sale and its items in one transaction.
	CreateSale(ctx context.Context, create SaleCreate) (Sale, error)
	ListSales(ctx context.Context, page, pageSize int, customerID int64) ([]Sale, int64, error)
	GetSale(ctx context.Context, id int64) (Sale, error)

	CreatePayment(ctx context.Context, create PaymentCreate) (Payment, error)
	ListPayments(ctx context.Context, page, pageSize int, saleID int64) ([]Payment, int64, error)

	KPIs(ctx context.Context) (KPIs, error)
}
