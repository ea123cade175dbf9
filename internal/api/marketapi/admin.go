package marketapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/market"
	"github.com/ksInsandji/pensezy-edition/internal/metrics"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	st, err := h.store.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return httpx.OK(c, st)
}

// Search answers the admin search bar; queries shorter than two characters get no sections.
func (h *Handler) Search(c *fiber.Ctx) error {
	q, ok := market.SearchQuery(c.Query("q"))
	if !ok {
		return httpx.OK(c, []market.SearchSection{})
	}
	profiles, books, orders, err := h.store.SearchAdmin(c.UserContext(), q)
	if err != nil {
		return err
	}
	sections := market.BuildSearch(profiles, books, orders)
	if sections == nil {
		sections = []market.SearchSection{}
	}
	return httpx.OK(c, sections)
}

func (h *Handler) ListListings(c *fiber.Ctx) error {
	status := models.ListingStatus(c.Query("status"))
	switch status {
	case "", models.ListingPending, models.ListingActive, models.ListingRejected:
	default:
		return httpx.BadRequest("Statut inconnu")
	}
	out, err := h.store.ListListings(c.UserContext(), status, c.Query("search"))
	if err != nil {
		return err
	}
	return httpx.OK(c, nonNil(out))
}

type statusRequest struct {
	Status models.ListingStatus `json:"status" validate:"required,oneof=active rejected"`
}

func (h *Handler) UpdateListingStatus(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	cur, err := h.store.ListingByID(ctx, id)
	if err != nil {
		return err
	}
	if err := market.ListingTransition(cur.Status, req.Status); err != nil {
		return err
	}
	if err := h.store.SetListingStatus(ctx, id, cur.Status, req.Status); err != nil {
		return err
	}
	h.log.Info("listing status changed", zap.String("listing_id", id.String()),
		zap.String("from", string(cur.Status)), zap.String("to", string(req.Status)))
	cur.Status = req.Status
	return httpx.Message(c, "Statut mis à jour", cur)
}

func (h *Handler) ListOrders(c *fiber.Ctx) error {
	status := models.OrderStatus(c.Query("status"))
	switch status {
	case "", models.OrderPending, models.OrderPaid, models.OrderCancelled:
	default:
		return httpx.BadRequest("Statut inconnu")
	}
	page := httpx.PageFrom(c)
	items, total, err := h.store.ListOrders(c.UserContext(), status, c.Query("search"), page.PerPage, page.Offset())
	if err != nil {
		return err
	}
	return httpx.OK(c, httpx.NewPaged(items, total, page))
}

func (h *Handler) GetOrder(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	o, err := h.store.GetOrder(c.UserContext(), id)
	if err != nil {
		return err
	}
	return httpx.OK(c, o)
}

// ConfirmPayment marks a pending order paid and credits the sellers. A second call
// on the same order answers 409 and writes nothing.
func (h *Handler) ConfirmPayment(c *fiber.Ctx) error {
	return h.markPaid(c, "")
}

// ValidateWithoutPayment is ConfirmPayment for orders settled outside the platform.
func (h *Handler) ValidateWithoutPayment(c *fiber.Ctx) error {
	return h.markPaid(c, "manual")
}

func (h *Handler) markPaid(c *fiber.Ctx, method string) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	unlock := h.locks.Lock("order:" + id.String())
	defer unlock()

	ctx := c.UserContext()
	o, err := h.store.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if method == "" {
		method = "confirmed"
		if o.PaymentMethod != nil && *o.PaymentMethod != "" {
			method = *o.PaymentMethod
		}
	}
	credits, err := h.store.MarkOrderPaid(ctx, id, method, nil)
	if err != nil {
		return err
	}
	metrics.WalletCredits.Add(float64(len(credits)))
	h.log.Info("order paid", zap.String("order_id", id.String()), zap.String("method", method), zap.Int("credits", len(credits)))

	o, err = h.store.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	return httpx.Message(c, "Commande validée", o)
}

func (h *Handler) CancelOrder(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	unlock := h.locks.Lock("order:" + id.String())
	defer unlock()
	if err := h.store.CancelOrder(c.UserContext(), id); err != nil {
		return err
	}
	h.log.Info("order cancelled", zap.String("order_id", id.String()))
	return httpx.Message(c, "Commande annulée", fiber.Map{"id": id})
}

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	role := models.ProfileRole(c.Query("role"))
	if role != "" && !role.Valid() {
		return httpx.BadRequest("Rôle inconnu")
	}
	page := httpx.PageFrom(c)
	items, total, err := h.store.ListProfiles(c.UserContext(), c.Query("search"), role, page.PerPage, page.Offset())
	if err != nil {
		return err
	}
	return httpx.OK(c, httpx.NewPaged(items, total, page))
}

type roleRequest struct {
	Role models.ProfileRole `json:"role" validate:"required,oneof=user seller admin"`
}

func (h *Handler) UpdateUserRole(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req roleRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	me, err := subjectID(c)
	if err != nil {
		return err
	}
	if me == id {
		return httpx.BadRequest("Vous ne pouvez pas modifier votre propre rôle")
	}
	p, err := h.store.UpdateProfileRole(c.UserContext(), id, req.Role)
	if err != nil {
		return err
	}
	h.log.Info("profile role changed", zap.String("profile_id", id.String()), zap.String("role", string(req.Role)))
	return httpx.Message(c, "Rôle mis à jour", p)
}

func (h *Handler) ListWithdrawals(c *fiber.Ctx) error {
	status := models.WalletTxStatus(c.Query("status"))
	switch status {
	case "", models.WalletPending, models.WalletCompleted, models.WalletRejected:
	default:
		return httpx.BadRequest("Statut inconnu")
	}
	out, err := h.store.ListWithdrawals(c.UserContext(), status)
	if err != nil {
		return err
	}
	return httpx.OK(c, nonNil(out))
}

func (h *Handler) CompleteWithdrawal(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	unlock := h.locks.Lock("withdrawal:" + id.String())
	defer unlock()
	tx, err := h.store.CompleteWithdrawal(c.UserContext(), id)
	if err != nil {
		return err
	}
	h.log.Info("withdrawal completed", zap.String("withdrawal_id", id.String()), zap.Int64("amount", tx.Amount))
	return httpx.Message(c, "Retrait effectué", tx)
}

type rejectRequest struct {
	Note string `json:"note" validate:"max=500"`
}

func (h *Handler) RejectWithdrawal(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req rejectRequest
	if len(c.Body()) > 0 {
		if err := httpx.Bind(c, &req); err != nil {
			return err
		}
	}
	unlock := h.locks.Lock("withdrawal:" + id.String())
	defer unlock()
	tx, err := h.store.RejectWithdrawal(c.UserContext(), id, strings.TrimSpace(req.Note))
	if err != nil {
		return err
	}
	h.log.Info("withdrawal rejected", zap.String("withdrawal_id", id.String()), zap.Int64("refunded", tx.Amount))
	return httpx.Message(c, "Retrait rejeté, montant recrédité", tx)
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
