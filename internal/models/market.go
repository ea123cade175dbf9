package models

import (
	"time"

	"github.com/google/uuid"
)

type ProfileRole string

const (
	ProfileUser   ProfileRole = "user"
	ProfileSeller ProfileRole = "seller"
	ProfileAdmin  ProfileRole = "admin"
)

func (r ProfileRole) Valid() bool {
	switch r {
	case ProfileUser, ProfileSeller, ProfileAdmin:
		return true
	}
	return false
}

type Profile struct {
	ID            uuid.UUID   `json:"id"`
	FullName      string      `json:"full_name"`
	Email         string      `json:"email"`
	Role          ProfileRole `json:"role"`
	WalletBalance int64       `json:"wallet_balance"`
	PasswordHash  string      `json:"-"`
	CreatedAt     time.Time   `json:"created_at"`
}

type Book struct {
	ID          uuid.UUID `json:"id"`
	SellerID    uuid.UUID `json:"seller_id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	CoverURL    *string   `json:"cover_url,omitempty"`
	FileKey     *string   `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	Listings    []Listing `json:"listings,omitempty"`
}

type ListingKind string

const (
	ListingDigital  ListingKind = "digital"
	ListingPhysical ListingKind = "physical"
)

type ListingStatus string

const (
	ListingPending  ListingStatus = "pending"
	ListingActive   ListingStatus = "active"
	ListingRejected ListingStatus = "rejected"
)

type Listing struct {
	ID        uuid.UUID     `json:"id"`
	BookID    uuid.UUID     `json:"book_id"`
	Kind      ListingKind   `json:"kind"`
	Price     int64         `json:"price"`
	Stock     *int          `json:"stock,omitempty"`
	Status    ListingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ListingView is a listing joined with its book and seller for tables and the catalogue.
type ListingView struct {
	Listing
	BookTitle  string    `json:"book_title"`
	BookAuthor string    `json:"book_author"`
	CoverURL   *string   `json:"cover_url,omitempty"`
	SellerID   uuid.UUID `json:"seller_id"`
	SellerName string    `json:"seller_name"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID            uuid.UUID   `json:"id"`
	BuyerID       uuid.UUID   `json:"buyer_id"`
	BuyerName     string      `json:"buyer_name,omitempty"`
	BuyerEmail    string      `json:"buyer_email,omitempty"`
	Status        OrderStatus `json:"status"`
	TotalAmount   int64       `json:"total_amount"`
	PaymentMethod *string     `json:"payment_method,omitempty"`
	PaymentRef    *string     `json:"payment_ref,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	PaidAt        *time.Time  `json:"paid_at,omitempty"`
	Items         []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID        uuid.UUID   `json:"id"`
	OrderID   uuid.UUID   `json:"order_id"`
	ListingID uuid.UUID   `json:"listing_id"`
	Quantity  int         `json:"quantity"`
	UnitPrice int64       `json:"unit_price"`
	Kind      ListingKind `json:"kind,omitempty"`
	BookTitle string      `json:"book_title,omitempty"`
	SellerID  uuid.UUID   `json:"seller_id"`
}

type WalletTxType string

const (
	WalletSale       WalletTxType = "sale"
	WalletWithdrawal WalletTxType = "withdrawal"
	WalletCredit     WalletTxType = "credit"
)

type WalletTxStatus string

const (
	WalletPending   WalletTxStatus = "pending"
	WalletCompleted WalletTxStatus = "completed"
	WalletRejected  WalletTxStatus = "rejected"
)

type WalletTransaction struct {
	ID          uuid.UUID      `json:"id"`
	ProfileID   uuid.UUID      `json:"profile_id"`
	ProfileName string         `json:"profile_name,omitempty"`
	OrderID     *uuid.UUID     `json:"order_id,omitempty"`
	Type        WalletTxType   `json:"type"`
	Status      WalletTxStatus `json:"status"`
	Amount      int64          `json:"amount"`
	Note        *string        `json:"note,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}

type DashboardStats struct {
	Users              int   `json:"users"`
	Sellers            int   `json:"sellers"`
	PendingListings    int   `json:"pending_listings"`
	ActiveListings     int   `json:"active_listings"`
	OrdersPending      int   `json:"orders_pending"`
	OrdersPaid         int   `json:"orders_paid"`
	Revenue            int64 `json:"revenue"`
	PendingWithdrawals int   `json:"pending_withdrawals"`
}
