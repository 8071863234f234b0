package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TakeawaySurcharge is added once per unit for take-away lines.
var TakeawaySurcharge = decimal.NewFromFloat(0.50)

// Option is a resolved sauce or add-on choice. Value type; two options are
// the same option iff their names match within a food's option set.
type Option struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

// Food is a menu item snapshot carried inside an order line.
type Food struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
	PhotoURL  string          `json:"photo_url,omitempty"`
}

// CartItem is one order line. Before checkout it lives only in the session
// cart; after checkout it is persisted under a sequencer-minted OrderID and
// only Status and PaymentID remain mutable.
type CartItem struct {
	OrderID    string          `json:"order_id,omitempty"`
	Food       Food            `json:"food"`
	Sauces     []Option        `json:"sauces,omitempty"`
	AddOns     []Option        `json:"add_ons,omitempty"`
	Quantity   int             `json:"quantity"`
	TakeAway   bool            `json:"take_away"`
	Remarks    string          `json:"remarks,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Timestamp  time.Time       `json:"timestamp"`
	UserID     string          `json:"user_id"`
	Status     string          `json:"status"`
	PaymentID  string          `json:"payment_id,omitempty"`
}

// LineUnitPrice is the full per-unit price of a line: base food price plus
// every selected sauce and add-on, plus the take-away surcharge.
func LineUnitPrice(food Food, sauces, addOns []Option, takeAway bool) decimal.Decimal {
	p := food.Price
	for _, s := range sauces {
		p = p.Add(s.Price)
	}
	for _, a := range addOns {
		p = p.Add(a.Price)
	}
	if takeAway {
		p = p.Add(TakeawaySurcharge)
	}
	return p
}

// CatalogOption is a sauce or add-on as stored in the catalog, keyed by a
// sequencer-minted ID. Order lines embed the resolved Option value only.
type CatalogOption struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

// Option converts the catalog entry to its order-line value form.
func (c CatalogOption) Option() Option {
	return Option{Name: c.Name, Price: c.Price, Available: c.Available}
}

// Category is a menu section label.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Payment records one checkout transaction. Immutable after creation.
type Payment struct {
	PaymentID       string          `json:"payment_id"`
	OrderIDs        []string        `json:"order_ids"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	PaymentMethod   string          `json:"payment_method"`
	TransactionDate time.Time       `json:"transaction_date"`
	Phone           string          `json:"phone,omitempty"`
	UserID          string          `json:"user_id"`
}

// RewardItem is a loyalty reward. Redemption flips IsRedeemed; settlement
// marks redeemed rewards paid and stamps them with the payment ID.
type RewardItem struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Condition      string `json:"condition,omitempty"`
	PointsRequired int64  `json:"points_required"`
	IsRedeemed     bool   `json:"is_redeemed"`
	IsPaid         bool   `json:"is_paid"`
	PaymentID      string `json:"payment_id,omitempty"`
}

// Profile is a customer or staff account. UID is assigned once (C#### from
// the customer counter, or the fixed staff ID); Role never changes after
// creation.
type Profile struct {
	UID            string `json:"uid"`
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	Gender         string `json:"gender,omitempty"`
	Email          string `json:"email"`
	PhotoURL       string `json:"photo_url,omitempty"`
	Role           string `json:"role"`
	Points         int64  `json:"points"`
	HashedPassword string `json:"hashed_password,omitempty"`
}

// Counter backs one ID sequence. Updated only inside the transaction that
// also creates the dependent document.
type Counter struct {
	Last int64 `json:"last"`
}

// SettlementTask is a pending retry for post-payment bookkeeping (points
// and reward stamping) that failed after the payment itself was recorded.
type SettlementTask struct {
	ID           string    `json:"id"`
	PaymentID    string    `json:"payment_id"`
	UserID       string    `json:"user_id"`
	Points       int64     `json:"points"`
	AwardPoints  bool      `json:"award_points"`
	StampRewards bool      `json:"stamp_rewards"`
	Attempts     int       `json:"attempts"`
	CreatedAt    time.Time `json:"created_at"`
}
