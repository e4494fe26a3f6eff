package domain

import "time"

type Product struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	StockAvailable int     `json:"stockavailable"`
	Active         bool    `json:"active"`
}

type GiftBoxItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
}

type GiftBox struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Products       []GiftBoxItem `json:"products"`
	GrandTotal     float64       `json:"grandtotal"`
	StockAvailable int           `json:"stockavailable"`
	Active         bool          `json:"active"`
}

type GiftBoxRequest struct {
	Name           string        `json:"name"`
	Products       []GiftBoxItem `json:"products"`
	GrandTotal     float64       `json:"grandtotal"`
	StockAvailable int           `json:"stockavailable"`
	Active         *bool         `json:"active,omitempty"`
}

// CartLine is a product row of the live cart. A line with quantity 0 is
// removed rather than stored.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type GiftSelectionLine struct {
	GiftBox  GiftBox `json:"giftBox"`
	Quantity int     `json:"quantity"`
}

type LineRef struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type GSTSettings struct {
	Enabled bool    `json:"enabled"`
	Pct     float64 `json:"pct"`
}

// PendingCart is the server-side draft written by "save" and consumed by
// "checkout".
type PendingCart struct {
	CustomerID   string      `json:"customerId"`
	ProductLines []LineRef   `json:"productLines"`
	GiftLines    []LineRef   `json:"giftLines"`
	DiscountPct  float64     `json:"discountPct"`
	GST          GSTSettings `json:"gst"`
}

type PricingSettings struct {
	DiscountPct float64     `json:"discountPct"`
	GST         GSTSettings `json:"gst"`
}

type PricingSummary struct {
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discountAmount"`
	Discounted     float64 `json:"discounted"`
	GSTAmount      float64 `json:"gstAmount"`
	GrandTotal     float64 `json:"grandTotal"`
}

type OrderGST struct {
	Enabled bool    `json:"enabled"`
	Pct     float64 `json:"pct"`
	Amount  float64 `json:"amount"`
}

type OrderPayload struct {
	CustomerID   string    `json:"customerId"`
	ProductLines []LineRef `json:"productLines"`
	GiftLines    []LineRef `json:"giftLines"`
	DiscountPct  float64   `json:"discountPct"`
	Subtotal     float64   `json:"subtotal"`
	GST          OrderGST  `json:"gst"`
	GrandTotal   float64   `json:"grandTotal"`
}

type OrderResult struct {
	OrderID          string `json:"orderId,omitempty"`
	InvoiceReference string `json:"invoiceReference"`
}

type Notice struct {
	Level     string `json:"level"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	SubjectID string `json:"subjectId,omitempty"`
}

type DeskView struct {
	CustomerID string              `json:"customerId"`
	Lines      []CartLine          `json:"lines"`
	GiftLines  []GiftSelectionLine `json:"giftLines"`
	Pricing    PricingSettings     `json:"pricing"`
	Summary    PricingSummary      `json:"summary"`
	Notices    []Notice            `json:"notices"`
	OpenedBy   string              `json:"openedBy"`
	OpenedAt   time.Time           `json:"openedAt"`
}

type CheckoutResponse struct {
	Desk   DeskView    `json:"desk"`
	Result OrderResult `json:"result"`
}

type GiftOption struct {
	GiftBox  GiftBox `json:"giftBox"`
	Selected int     `json:"selected"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	Identity    Identity `json:"identity"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
}

// Identity is the decoded content of a bearer credential.
type Identity struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	TenantID  string    `json:"tenantId"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Invoice is the local ledger entry written after a successful checkout.
type Invoice struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenantId"`
	CustomerID       string    `json:"customerId"`
	OrderID          string    `json:"orderId,omitempty"`
	InvoiceReference string    `json:"invoiceReference"`
	GrandTotal       float64   `json:"grandTotal"`
	ItemCount        int       `json:"itemCount"`
	CreatedBy        string    `json:"createdBy"`
	CreatedAt        time.Time `json:"createdAt"`
}

type AuditLog struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	ActorUserID string    `json:"actorUserId"`
	ActorRole   string    `json:"actorRole"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entityType"`
	EntityID    string    `json:"entityId"`
	Detail      string    `json:"detail"`
	CreatedAt   time.Time `json:"createdAt"`
}

const (
	RoleSuperAdmin = "super-admin"
	RoleSubAdmin   = "sub-admin"
)

const (
	NoticeInfo    = "info"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

const (
	NoticeUnavailable       = "unavailable"
	NoticeOutOfStock        = "out_of_stock"
	NoticeClamped           = "clamped"
	NoticeOverStockClamped  = "over_stock_clamped"
	NoticeOverStockRejected = "over_stock_rejected"
	NoticeCatalogLoadFailed = "catalog_load_failed"
	NoticeSubmissionFailed  = "submission_failed"
	NoticeEmptyCart         = "empty_cart"
	NoticeDraftSaved        = "draft_saved"
	NoticeOrderPlaced       = "order_placed"
	NoticePercentOutOfRange = "percent_out_of_range"
)
