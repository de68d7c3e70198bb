// Package domain defines the persistence models for the tyre-distribution
// data set (users, dealers, products, warehouses, sales, claims, inventory,
// orders) plus the semantic index rows and the durable conversation log.
// These types are mapped with GORM and form the core data layer of the
// assistant backend.
package domain

import "time"

// User is a login account. Dealers carry a DealerID; sales representatives
// and admins do not.
type User struct {
	UserID   int    `json:"user_id"  gorm:"column:user_id;primaryKey;autoIncrement"`
	Username string `json:"username" gorm:"type:varchar(64);not null;uniqueIndex"`
	Password string `json:"-"        gorm:"type:varchar(128);not null"`
	Email    string `json:"email"    gorm:"type:varchar(128)"`
	Role     string `json:"role"     gorm:"type:varchar(32);not null"`
	DealerID *int   `json:"dealer_id,omitempty" gorm:"column:dealer_id;index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Dealer is a tyre-reselling account.
type Dealer struct {
	DealerID int    `json:"dealer_id" gorm:"column:dealer_id;primaryKey;autoIncrement"`
	Name     string `json:"name"      gorm:"type:varchar(128);not null"`
}

// TableName returns the database table name for Dealer.
func (Dealer) TableName() string { return "dealer" }

// Product is a tyre SKU. ProductID is the printed size code
// (e.g. "100/35R24 50P"), not a surrogate key.
type Product struct {
	ProductID        string  `json:"product_id"   gorm:"column:product_id;primaryKey;type:varchar(64)"`
	ProductName      string  `json:"product_name" gorm:"type:varchar(128);not null"`
	Category         string  `json:"category"     gorm:"type:varchar(64)"`
	Price            float64 `json:"price"        gorm:"not null"`
	SectionWidth     int     `json:"section_width"`
	AspectRatio      int     `json:"aspect_ratio"`
	ConstructionType string  `json:"construction_type" gorm:"type:varchar(16)"`
	RimDiameterInch  int     `json:"rim_diameter_inch"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "product" }

// Warehouse is a stocking location.
type Warehouse struct {
	WarehouseID int    `json:"warehouse_id" gorm:"column:warehouse_id;primaryKey;autoIncrement"`
	Location    string `json:"location"     gorm:"type:varchar(128);not null"`
	Zone        string `json:"zone"         gorm:"type:varchar(32)"`
}

// TableName returns the database table name for Warehouse.
func (Warehouse) TableName() string { return "warehouse" }

// Sale records a dealer selling a product out of a warehouse.
// Dealer-scoped: dealers may only read their own rows.
type Sale struct {
	SalesID     int       `json:"sales_id"     gorm:"column:sales_id;primaryKey;autoIncrement"`
	DealerID    int       `json:"dealer_id"    gorm:"column:dealer_id;not null;index"`
	ProductID   string    `json:"product_id"   gorm:"column:product_id;type:varchar(64);not null"`
	WarehouseID int       `json:"warehouse_id" gorm:"column:warehouse_id;not null"`
	Quantity    int       `json:"quantity"     gorm:"not null"`
	Cost        float64   `json:"cost"         gorm:"not null"`
	Date        time.Time `json:"date"`
}

// TableName returns the database table name for Sale.
func (Sale) TableName() string { return "sales" }

// Claim is a warranty or service claim raised by a dealer.
// Dealer-scoped like Sale.
type Claim struct {
	ClaimID  int    `json:"claim_id"  gorm:"column:claim_id;primaryKey;autoIncrement"`
	DealerID int    `json:"dealer_id" gorm:"column:dealer_id;not null;index"`
	Status   string `json:"status"    gorm:"type:varchar(32);not null"`
}

// TableName returns the database table name for Claim.
func (Claim) TableName() string { return "claim" }

// Inventory is the current stock level of one product in one warehouse.
// Mutated only by the order-placement transaction.
type Inventory struct {
	ProductID   string `json:"product_id"   gorm:"column:product_id;type:varchar(64);primaryKey"`
	WarehouseID int    `json:"warehouse_id" gorm:"column:warehouse_id;primaryKey"`
	Quantity    int    `json:"quantity"     gorm:"not null"`
}

// TableName returns the database table name for Inventory.
func (Inventory) TableName() string { return "inventory" }

// Order is a purchase order placed by a sales representative on behalf of a
// dealer. Created only inside the atomic order transaction that also
// decrements Inventory; never updated or deleted afterwards.
type Order struct {
	OrderID     int       `json:"order_id"     gorm:"column:order_id;primaryKey;autoIncrement"`
	DealerID    int       `json:"dealer_id"    gorm:"column:dealer_id;not null;index"`
	ProductID   string    `json:"product_id"   gorm:"column:product_id;type:varchar(64);not null"`
	WarehouseID int       `json:"warehouse_id" gorm:"column:warehouse_id;not null"`
	Quantity    int       `json:"quantity"     gorm:"not null"`
	UnitPrice   float64   `json:"unit_price"   gorm:"not null"`
	TotalCost   float64   `json:"total_cost"   gorm:"not null"`
	OrderDate   time.Time `json:"order_date"`
	Status      string    `json:"status"       gorm:"type:varchar(32);default:'placed'"`
	SalesRepID  int       `json:"sales_rep_id" gorm:"column:sales_rep_id;not null;index"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// VectorRecord is one row of the semantic index: a text passage, its
// pre-computed embedding (JSON array of floats, stored as text), and a
// metadata blob describing the entities the passage mentions.
type VectorRecord struct {
	ID        int    `json:"id"       gorm:"primaryKey;autoIncrement"`
	Content   string `json:"content"  gorm:"type:text"`
	Embedding string `json:"-"        gorm:"type:text"`
	Metadata  string `json:"metadata" gorm:"type:text"`
}

// TableName returns the database table name for VectorRecord.
func (VectorRecord) TableName() string { return "vector_store" }

// ConversationLog is the durable audit record of one exchange, keyed by
// user and session for cross-process continuity.
type ConversationLog struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID         int       `json:"user_id"         gorm:"column:user_id;not null;index"`
	DealerID       *int      `json:"dealer_id,omitempty" gorm:"column:dealer_id"`
	UserQuery      string    `json:"user_query"      gorm:"type:text;not null"`
	AIResponse     string    `json:"ai_response"     gorm:"type:text;not null"`
	SessionID      string    `json:"session_id"      gorm:"type:char(36);index"`
	QueryTimestamp time.Time `json:"query_timestamp"`
	QueryType      string    `json:"query_type"      gorm:"type:varchar(16)"`
}

// TableName returns the database table name for ConversationLog.
func (ConversationLog) TableName() string { return "conversation_logs" }

// WebhookReceipt deduplicates retried deliveries (Twilio message SIDs,
// client Idempotency-Key headers). A receipt stores the response that was
// produced the first time so replays can be served without reprocessing.
type WebhookReceipt struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    int       `json:"user_id"    gorm:"column:user_id;not null;uniqueIndex:ux_receipt_user_key"`
	Key       string    `json:"key"        gorm:"type:varchar(200);not null;uniqueIndex:ux_receipt_user_key"`
	Response  string    `json:"response"   gorm:"type:text"`
	Status    int       `json:"status"     gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

// TableName returns the database table name for WebhookReceipt.
func (WebhookReceipt) TableName() string { return "webhook_receipts" }
