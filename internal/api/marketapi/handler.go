// Package marketapi is the HTTP API of the book marketplace: admin back-office,
// seller products and wallet, buyer catalogue and orders.
package marketapi

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/app"
	"github.com/ksInsandji/pensezy-edition/internal/auth"
	"github.com/ksInsandji/pensezy-edition/internal/authz"
	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/market"
	"github.com/ksInsandji/pensezy-edition/internal/models"
	"github.com/ksInsandji/pensezy-edition/internal/payments"
	"github.com/ksInsandji/pensezy-edition/internal/storage"
)

// Store is the persistence used by the handlers; *db.Store implements it.
type Store interface {
	CreateProfile(ctx context.Context, p models.Profile) (models.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (models.Profile, error)
	ProfileByID(ctx context.Context, id uuid.UUID) (models.Profile, error)
	ListProfiles(ctx context.Context, search string, role models.ProfileRole, limit, offset int) ([]models.Profile, int, error)
	UpdateProfileRole(ctx context.Context, id uuid.UUID, role models.ProfileRole) (models.Profile, error)

	CreateBookWithListings(ctx context.Context, b models.Book, listings []models.Listing) (models.Book, error)
	BooksBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Book, error)
	ListListings(ctx context.Context, status models.ListingStatus, search string) ([]models.ListingView, error)
	ListMarketplace(ctx context.Context) ([]models.ListingView, error)
	ListingByID(ctx context.Context, id uuid.UUID) (models.ListingView, error)
	SetListingStatus(ctx context.Context, id uuid.UUID, from, to models.ListingStatus) error

	CreateOrder(ctx context.Context, buyerID uuid.UUID, lines []market.OrderLine) (models.Order, error)
	ListOrders(ctx context.Context, status models.OrderStatus, search string, limit, offset int) ([]models.Order, int, error)
	OrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error)
	MarkOrderPaid(ctx context.Context, id uuid.UUID, method string, ref *string) ([]market.Credit, error)
	CancelOrder(ctx context.Context, id uuid.UUID) error
	SetPaymentRef(ctx context.Context, id uuid.UUID, method, ref string) error

	RequestWithdrawal(ctx context.Context, profileID uuid.UUID, amount int64) (models.WalletTransaction, error)
	ListWithdrawals(ctx context.Context, status models.WalletTxStatus) ([]models.WalletTransaction, error)
	WalletHistory(ctx context.Context, profileID uuid.UUID) ([]models.WalletTransaction, error)
	CompleteWithdrawal(ctx context.Context, id uuid.UUID) (models.WalletTransaction, error)
	RejectWithdrawal(ctx context.Context, id uuid.UUID, note string) (models.WalletTransaction, error)

	SearchAdmin(ctx context.Context, q string) ([]models.Profile, []models.Book, []models.Order, error)
	Dashboard(ctx context.Context) (models.DashboardStats, error)
}

type Handler struct {
	store   Store
	files   storage.Store
	pay     payments.Gateway
	tokens  *auth.Issuer
	locks   *app.KeyLimiter
	log     *zap.Logger
	isAdmin func(email string) bool
}

type Deps struct {
	Store    Store
	Files    storage.Store
	Payments payments.Gateway
	Tokens   *auth.Issuer
	Log      *zap.Logger
	// AdminEmail reports accounts that are always treated as admins.
	AdminEmail func(email string) bool
}

func New(d Deps) *Handler {
	if d.Files == nil {
		d.Files = storage.Disabled{}
	}
	if d.Payments == nil {
		d.Payments = payments.Disabled{}
	}
	if d.AdminEmail == nil {
		d.AdminEmail = func(string) bool { return false }
	}
	return &Handler{
		store:   d.Store,
		files:   d.Files,
		pay:     d.Payments,
		tokens:  d.Tokens,
		locks:   app.NewKeyLimiter(),
		log:     d.Log,
		isAdmin: d.AdminEmail,
	}
}

const (
	resBackoffice = "backoffice"
	resSeller     = "seller"
	resBuyer      = "buyer"
)

func roles(rs ...models.ProfileRole) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// Gate returns the policies of the marketplace resources.
func Gate() *authz.Gate {
	return authz.NewGate().
		Register(resBackoffice, authz.Roles{authz.Manage: roles(models.ProfileAdmin)}).
		Register(resSeller, authz.Roles{authz.Manage: roles(models.ProfileSeller, models.ProfileAdmin)}).
		Register(resBuyer, authz.Roles{authz.Manage: roles(models.ProfileUser, models.ProfileSeller, models.ProfileAdmin)})
}

// Routes mounts the API under /api.
func (h *Handler) Routes(r fiber.Router) {
	g := Gate()
	api := r.Group("/api")

	api.Post("/auth/login", h.Login)
	api.Post("/auth/register", h.Register)
	api.Get("/marketplace", h.Marketplace)

	authed := api.Group("", auth.Authenticate(h.tokens, h.elevate))
	authed.Get("/me", h.Me)

	admin := authed.Group("/admin", g.Require(resBackoffice, authz.Manage))
	admin.Get("/dashboard", h.Dashboard)
	admin.Get("/search", h.Search)
	admin.Get("/listings", h.ListListings)
	admin.Patch("/listings/:id/status", h.UpdateListingStatus)
	admin.Get("/orders", h.ListOrders)
	admin.Get("/orders/:id", h.GetOrder)
	admin.Post("/orders/:id/confirm-payment", h.ConfirmPayment)
	admin.Post("/orders/:id/validate", h.ValidateWithoutPayment)
	admin.Post("/orders/:id/cancel", h.CancelOrder)
	admin.Get("/users", h.ListUsers)
	admin.Patch("/users/:id/role", h.UpdateUserRole)
	admin.Get("/withdrawals", h.ListWithdrawals)
	admin.Post("/withdrawals/:id/complete", h.CompleteWithdrawal)
	admin.Post("/withdrawals/:id/reject", h.RejectWithdrawal)

	seller := authed.Group("/seller", g.Require(resSeller, authz.Manage))
	seller.Post("/products", h.CreateProduct)
	seller.Get("/books", h.MyBooks)
	seller.Post("/withdrawals", h.RequestWithdrawal)

	buyer := g.Require(resBuyer, authz.Manage)
	authed.Get("/wallet", buyer, h.Wallet)
	authed.Post("/orders", buyer, h.CreateOrder)
	authed.Get("/orders", buyer, h.MyOrders)
	authed.Post("/orders/:id/payment-link", buyer, h.PaymentLink)
}

func (h *Handler) elevate(email, role string) string {
	if h.isAdmin(email) {
		return string(models.ProfileAdmin)
	}
	return role
}

func subjectID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(authz.SubjectFrom(c.UserContext()).ID)
	if err != nil {
		return uuid.Nil, httpx.Unauthorized()
	}
	return id, nil
}

func paramID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, httpx.BadRequest("Identifiant invalide")
	}
	return id, nil
}
