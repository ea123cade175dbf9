// Package market holds the marketplace rules that do not touch storage: listing status
// transitions, product kinds, order pricing and seller wallet credits.
package market

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

var (
	ErrTransition     = errors.New("market: transition not allowed")
	ErrInvalidProduct = errors.New("market: invalid product")
	ErrEmptyOrder     = errors.New("market: order has no items")
	ErrNotForSale     = errors.New("market: listing is not for sale")
	ErrOutOfStock     = errors.New("market: not enough stock")
	ErrNotPending     = errors.New("market: order is not pending")
	ErrAmount         = errors.New("market: invalid amount")
	ErrQuantity       = errors.New("market: invalid quantity")
)

// ListingTransition checks an admin status change. Only active and rejected are reachable,
// and pending can never be set back.
func ListingTransition(from, to models.ListingStatus) error {
	if to != models.ListingActive && to != models.ListingRejected {
		return fmt.Errorf("%w: statut cible %q", ErrTransition, to)
	}
	if from == to {
		return fmt.Errorf("%w: l'annonce est déjà %q", ErrTransition, to)
	}
	switch from {
	case models.ListingPending, models.ListingActive, models.ListingRejected:
		return nil
	}
	return fmt.Errorf("%w: statut actuel %q inconnu", ErrTransition, from)
}

// CanConfirm reports whether an order may be moved to paid.
func CanConfirm(s models.OrderStatus) error {
	if s != models.OrderPending {
		return fmt.Errorf("%w: commande %s", ErrNotPending, s)
	}
	return nil
}

type ProductKind string

const (
	KindDigital  ProductKind = "digital"
	KindPhysical ProductKind = "physical"
	KindHybrid   ProductKind = "hybrid"
)

// ProductInput is what a seller submits; prices are in FCFA.
type ProductInput struct {
	Kind          ProductKind
	Title         string
	Author        string
	Description   string
	DigitalPrice  *int64
	PhysicalPrice *int64
	Stock         *int
	HasPDF        bool
	RequirePDF    bool
}

// Listings validates the input and returns the listings to create, all pending.
func (p ProductInput) Listings() ([]models.Listing, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, fmt.Errorf("%w: titre obligatoire", ErrInvalidProduct)
	}
	wantDigital := p.Kind == KindDigital || p.Kind == KindHybrid
	wantPhysical := p.Kind == KindPhysical || p.Kind == KindHybrid
	if !wantDigital && !wantPhysical {
		return nil, fmt.Errorf("%w: type de produit %q", ErrInvalidProduct, p.Kind)
	}

	var out []models.Listing
	if wantDigital {
		if p.DigitalPrice == nil || *p.DigitalPrice <= 0 {
			return nil, fmt.Errorf("%w: prix numérique obligatoire", ErrInvalidProduct)
		}
		if p.RequirePDF && !p.HasPDF {
			return nil, fmt.Errorf("%w: fichier PDF obligatoire pour la version numérique", ErrInvalidProduct)
		}
		out = append(out, models.Listing{Kind: models.ListingDigital, Price: *p.DigitalPrice, Status: models.ListingPending})
	}
	if wantPhysical {
		if p.PhysicalPrice == nil || *p.PhysicalPrice <= 0 {
			return nil, fmt.Errorf("%w: prix physique obligatoire", ErrInvalidProduct)
		}
		if p.Stock == nil || *p.Stock < 0 {
			return nil, fmt.Errorf("%w: stock obligatoire pour la version physique", ErrInvalidProduct)
		}
		stock := *p.Stock
		out = append(out, models.Listing{Kind: models.ListingPhysical, Price: *p.PhysicalPrice, Stock: &stock, Status: models.ListingPending})
	}
	return out, nil
}

type OrderLine struct {
	ListingID uuid.UUID `json:"listing_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// PriceOrder turns requested lines into order items using the current listings.
// Every quantity must be at least 1. Lines for the same listing are merged, a digital
// copy is sold once and physical stock must cover the quantity.
func PriceOrder(lines []OrderLine, listings map[uuid.UUID]models.ListingView) ([]models.OrderItem, int64, error) {
	if len(lines) == 0 {
		return nil, 0, fmt.Errorf("%w: la commande ne contient aucun article", ErrEmptyOrder)
	}
	qty := map[uuid.UUID]int{}
	var order []uuid.UUID
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, 0, fmt.Errorf("%w: quantité %d pour l'annonce %s", ErrQuantity, l.Quantity, l.ListingID)
		}
		if _, seen := qty[l.ListingID]; !seen {
			order = append(order, l.ListingID)
		}
		qty[l.ListingID] += l.Quantity
	}

	items := make([]models.OrderItem, 0, len(order))
	var total int64
	for _, id := range order {
		lv, ok := listings[id]
		if !ok || lv.Status != models.ListingActive {
			return nil, 0, fmt.Errorf("%w: annonce %s indisponible", ErrNotForSale, id)
		}
		n := qty[id]
		if lv.Kind == models.ListingDigital {
			n = 1
		} else if lv.Stock != nil && *lv.Stock < n {
			return nil, 0, fmt.Errorf("%w: stock insuffisant pour %q (%d disponible)", ErrOutOfStock, lv.BookTitle, *lv.Stock)
		}
		items = append(items, models.OrderItem{
			ListingID: id,
			Quantity:  n,
			UnitPrice: lv.Price,
			Kind:      lv.Kind,
			BookTitle: lv.BookTitle,
			SellerID:  lv.SellerID,
		})
		total += int64(n) * lv.Price
	}
	return items, total, nil
}

// Credit is what one seller earns from a paid order.
type Credit struct {
	SellerID uuid.UUID `json:"seller_id"`
	Amount   int64     `json:"amount"`
}

// SellerCredits sums quantity*unit_price per seller, ordered by seller id.
func SellerCredits(items []models.OrderItem) []Credit {
	sum := map[uuid.UUID]int64{}
	for _, it := range items {
		sum[it.SellerID] += int64(it.Quantity) * it.UnitPrice
	}
	out := make([]Credit, 0, len(sum))
	for id, amount := range sum {
		if amount > 0 {
			out = append(out, Credit{SellerID: id, Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SellerID.String() < out[j].SellerID.String() })
	return out
}

// CheckWithdrawal validates a withdrawal request against the current balance.
func CheckWithdrawal(amount, balance int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: le montant doit être positif", ErrAmount)
	}
	if amount > balance {
		return fmt.Errorf("%w: solde insuffisant (%d FCFA)", ErrAmount, balance)
	}
	return nil
}
