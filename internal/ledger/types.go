package ledger

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"created_at"`
}

type Customer struct {
	ID        int64  `json:"id"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type CustomerCreate struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
}

type Sale struct {
	ID              int64      `json:"id"`
	CustomerID      int64      `json:"customer_id"`
	PurchaseDate    string     `json:"purchase_date"`
	PaymentDueDate  string     `json:"payment_due_date,omitempty"`
	DeliveryDate    string     `json:"delivery_date,omitempty"`
	DeliveryAddress string     `json:"delivery_address"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       int64      `json:"created_at"`
	Items           []SaleItem `json:"items,omitempty"`
}

type SaleItem struct {
	ID          int64   `json:"id"`
	SaleID      int64   `json:"sale_id"`
	ProductCode string  `json:"product_code,omitempty"`
	JewelType   string  `json:"jewel_type"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	PhotoURL    string  `json:"photo_url,omitempty"`
	CreatedAt   int64   `json:"created_at"`
}

type SaleCreate struct {
	CustomerID      int64            `json:"customer_id"`
	PurchaseDate    string           `json:"purchase_date,omitempty"`
	PaymentDueDate  string           `json:"payment_due_date,omitempty"`
	DeliveryDate    string           `json:"delivery_date,omitempty"`
	DeliveryAddress string           `json:"delivery_address"`
	Notes           string           `json:"notes,omitempty"`
	Items           []SaleItemCreate `json:"items"`
}

type SaleItemCreate struct {
	ProductCode string  `json:"product_code,omitempty"`
	JewelType   string  `json:"jewel_type"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	PhotoURL    string  `json:"photo_url,omitempty"`
}

type Payment struct {
	ID        int64   `json:"id"`
	SaleID    int64   `json:"sale_id"`
	Amount    float64 `json:"amount"`
	PaidAt    int64   `json:"paid_at"`
	CreatedAt int64   `json:"created_at"`
}

type PaymentCreate struct {
	SaleID int64   `json:"sale_id"`
	Amount float64 `json:"amount"`
}

// KPIs summarizes the ledger for the dashboard.
type KPIs struct {
	TotalSales     int64   `json:"total_sales"`
	TotalSold      float64 `json:"total_sold"`
	TotalPaid      float64 `json:"total_paid"`
	TotalPending   float64 `json:"total_pending"`
	TotalCustomers int64   `json:"total_customers"`
}
