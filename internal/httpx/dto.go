package httpx

type CheckoutRequest struct {
	CustomerEmail string            `json:"customer_email"`
	DiscountCode  string            `json:"discount_code,omitempty"`
	Items         []CheckoutItemDTO `json:"items"`
}

type CheckoutItemDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

type CheckoutResponse struct {
	OrderID         string `json:"order_id"`
	Success         bool   `json:"success"`
	PaymentStatus   string `json:"payment_status"`
	Total           string `json:"total"`
	DiscountApplied bool   `json:"discount_applied"`
	OrderStatus     string `json:"order_status"`
}

type CheckoutLogEntryResponse struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Stage     string `json:"stage"`
	Detail    string `json:"detail,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
