// Package payments creates Midtrans Snap payment links for marketplace orders.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/ksInsandji/pensezy-edition/internal/config"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const Method = "midtrans"

var (
	ErrDisabled     = errors.New("payments: disabled")
	ErrInvalidOrder = errors.New("payments: invalid order")
)

type Link struct {
	Ref         string `json:"payment_ref"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type Gateway interface {
	CreateLink(ctx context.Context, o models.Order, buyer models.Profile) (Link, error)
}

type snapCreator interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

type Snap struct {
	client snapCreator
	newRef func() string
}

// New returns a Snap gateway, or Disabled when no server key is configured.
func New(cfg config.MidtransConfig) Gateway {
	if cfg.ServerKey == "" {
		return Disabled{}
	}
	env := midtrans.Sandbox
	if cfg.Production {
		env = midtrans.Production
	}
	var c snap.Client
	c.New(cfg.ServerKey, env)
	return &Snap{client: &c, newRef: uuid.NewString}
}

func (s *Snap) CreateLink(ctx context.Context, o models.Order, buyer models.Profile) (Link, error) {
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}
	req, ref, err := s.request(o, buyer)
	if err != nil {
		return Link{}, err
	}
	resp, merr := s.client.CreateTransaction(req)
	if merr != nil {
		return Link{}, fmt.Errorf("midtrans snap: %w", merr)
	}
	return Link{Ref: ref, Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// request builds the Snap payload. The Midtrans order id is a fresh reference so that a
// buyer can ask for a new link after an expired one; the order id travels in CustomField1.
func (s *Snap) request(o models.Order, buyer models.Profile) (*snap.Request, string, error) {
	if o.Status != models.OrderPending {
		return nil, "", fmt.Errorf("%w: commande %s", ErrInvalidOrder, o.Status)
	}
	if o.TotalAmount <= 0 || len(o.Items) == 0 {
		return nil, "", fmt.Errorf("%w: montant nul", ErrInvalidOrder)
	}
	ref := s.newRef()

	items := make([]midtrans.ItemDetails, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, midtrans.ItemDetails{
			ID:       it.ListingID.String(),
			Name:     truncate(it.BookTitle, 50),
			Price:    it.UnitPrice,
			Qty:      int32(it.Quantity),
			Category: string(it.Kind),
		})
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  ref,
			GrossAmt: o.TotalAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: buyer.FullName,
			Email: buyer.Email,
		},
		Items:        &items,
		CustomField1: o.ID.String(),
	}
	return req, ref, nil
}

// Disabled is used when MIDTRANS_SERVER_KEY is empty.
type Disabled struct{}

func (Disabled) CreateLink(context.Context, models.Order, models.Profile) (Link, error) {
	return Link{}, ErrDisabled
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
