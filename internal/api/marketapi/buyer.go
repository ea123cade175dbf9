package marketapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/market"
	"github.com/ksInsandji/pensezy-edition/internal/models"
	"github.com/ksInsandji/pensezy-edition/internal/payments"
)

// Marketplace is the public catalogue: active listings only.
func (h *Handler) Marketplace(c *fiber.Ctx) error {
	out, err := h.store.ListMarketplace(c.UserContext())
	if err != nil {
		return err
	}
	return httpx.OK(c, nonNil(out))
}

type orderRequest struct {
	Items []market.OrderLine `json:"items" validate:"required,min=1,max=50,dive"`
}

func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	buyer, err := subjectID(c)
	if err != nil {
		return err
	}
	var req orderRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	o, err := h.store.CreateOrder(c.UserContext(), buyer, req.Items)
	if err != nil {
		return err
	}
	h.log.Info("order created", zap.String("order_id", o.ID.String()), zap.Int64("total", o.TotalAmount))
	return httpx.Created(c, o)
}

func (h *Handler) MyOrders(c *fiber.Ctx) error {
	buyer, err := subjectID(c)
	if err != nil {
		return err
	}
	out, err := h.store.OrdersByBuyer(c.UserContext(), buyer)
	if err != nil {
		return err
	}
	return httpx.OK(c, nonNil(out))
}

type walletView struct {
	Balance      int64                      `json:"balance"`
	Transactions []models.WalletTransaction `json:"transactions"`
}

func (h *Handler) Wallet(c *fiber.Ctx) error {
	me, err := subjectID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	p, err := h.store.ProfileByID(ctx, me)
	if err != nil {
		return err
	}
	txs, err := h.store.WalletHistory(ctx, me)
	if err != nil {
		return err
	}
	return httpx.OK(c, walletView{Balance: p.WalletBalance, Transactions: nonNil(txs)})
}

// PaymentLink opens a Midtrans Snap payment for the caller's pending order.
func (h *Handler) PaymentLink(c *fiber.Ctx) error {
	me, err := subjectID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	o, err := h.store.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if o.BuyerID != me {
		return httpx.NotFound("Commande introuvable")
	}
	if err := market.CanConfirm(o.Status); err != nil {
		return httpx.Conflict("Seule une commande en attente peut être payée")
	}
	buyer, err := h.store.ProfileByID(ctx, me)
	if err != nil {
		return err
	}

	link, err := h.pay.CreateLink(ctx, o, buyer)
	switch {
	case errors.Is(err, payments.ErrDisabled):
		return &httpx.Error{Status: fiber.StatusServiceUnavailable, Msg: "Paiement en ligne indisponible"}
	case errors.Is(err, payments.ErrInvalidOrder):
		return httpx.Conflict("Commande non payable")
	case err != nil:
		return err
	}
	if err := h.store.SetPaymentRef(ctx, id, payments.Method, link.Ref); err != nil {
		return err
	}
	return httpx.OK(c, link)
}
