//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/market"
	"github.com/ksInsandji/pensezy-edition/internal/models"
	"github.com/ksInsandji/pensezy-edition/internal/testutil/testdb"
)

func startDB(t *testing.T) *testdb.DBHandle {
	t.Helper()
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)
	return h
}

func mustProfile(t *testing.T, s *db.Store, name, email string, role models.ProfileRole) models.Profile {
	t.Helper()
	p, err := s.CreateProfile(context.Background(), models.Profile{FullName: name, Email: email, Role: role})
	require.NoError(t, err)
	return p
}

func i64(v int64) *int64 { return &v }
func ip(v int) *int       { return &v }

// mustActiveHybrid creates a hybrid book for the seller and activates both listings.
func mustActiveHybrid(t *testing.T, s *db.Store, sellerID uuid.UUID, title string) models.Book {
	t.Helper()
	ctx := context.Background()
	ls, err := market.ProductInput{Kind: market.KindHybrid, Title: title, DigitalPrice: i64(3000), PhysicalPrice: i64(5000), Stock: ip(10)}.Listings()
	require.NoError(t, err)
	b, err := s.CreateBookWithListings(ctx, models.Book{SellerID: sellerID, Title: title, Author: "Mongo Beti"}, ls)
	require.NoError(t, err)
	for _, l := range b.Listings {
		require.NoError(t, s.SetListingStatus(ctx, l.ID, models.ListingPending, models.ListingActive))
	}
	return b
}

func TestCreateBookWithListings_Hybrid(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	seller := mustProfile(t, h.Store, "Vendeur", "vendeur@pensezy.cm", models.ProfileSeller)

	ls, err := market.ProductInput{Kind: market.KindHybrid, Title: "Ville cruelle", DigitalPrice: i64(3000), PhysicalPrice: i64(5000), Stock: ip(10)}.Listings()
	require.NoError(t, err)
	b, err := h.Store.CreateBookWithListings(ctx, models.Book{SellerID: seller.ID, Title: "Ville cruelle"}, ls)
	require.NoError(t, err)
	require.Len(t, b.Listings, 2)

	books, err := h.Store.BooksBySeller(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Len(t, books[0].Listings, 2)
	for _, l := range books[0].Listings {
		assert.Equal(t, b.ID, l.BookID)
		assert.Equal(t, models.ListingPending, l.Status)
	}
}

func TestCreateBookWithListings_ListingFailureLeavesNoBook(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	seller := mustProfile(t, h.Store, "Vendeur", "vendeur@pensezy.cm", models.ProfileSeller)

	// two digital listings violate unique(book_id, kind)
	dup := []models.Listing{
		{Kind: models.ListingDigital, Price: 3000},
		{Kind: models.ListingDigital, Price: 3500},
	}
	_, err := h.Store.CreateBookWithListings(ctx, models.Book{SellerID: seller.ID, Title: "Doublon"}, dup)
	require.ErrorIs(t, err, db.ErrConflict)

	books, err := h.Store.BooksBySeller(ctx, seller.ID)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestMarketplaceListsActiveOnly(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	seller := mustProfile(t, h.Store, "Vendeur", "vendeur@pensezy.cm", models.ProfileSeller)
	b := mustActiveHybrid(t, h.Store, seller.ID, "Le vieux nègre et la médaille")
	require.NoError(t, h.Store.SetListingStatus(ctx, b.Listings[0].ID, models.ListingActive, models.ListingRejected))

	// stale transition is refused
	err := h.Store.SetListingStatus(ctx, b.Listings[0].ID, models.ListingActive, models.ListingRejected)
	require.ErrorIs(t, err, db.ErrConflict)

	cat, err := h.Store.ListMarketplace(ctx)
	require.NoError(t, err)
	require.Len(t, cat, 1)
	assert.Equal(t, b.Listings[1].ID, cat[0].ID)
	assert.Equal(t, models.ListingActive, cat[0].Status)
}

func TestMarkOrderPaid_CreditsSellerOnce(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	seller := mustProfile(t, h.Store, "Vendeur", "vendeur@pensezy.cm", models.ProfileSeller)
	buyer := mustProfile(t, h.Store, "Acheteur", "acheteur@pensezy.cm", models.ProfileUser)
	b := mustActiveHybrid(t, h.Store, seller.ID, "Une vie de boy")

	order, err := h.Store.CreateOrder(ctx, buyer.ID, []market.OrderLine{
		{ListingID: b.Listings[0].ID, Quantity: 3},
		{ListingID: b.Listings[1].ID, Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3000+2*5000), order.TotalAmount)

	// concurrent double submission: exactly one wins
	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.Store.MarkOrderPaid(ctx, order.ID, "manual", nil)
		}(i)
	}
	wg.Wait()
	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, db.ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)

	_, err = h.Store.MarkOrderPaid(ctx, order.ID, "manual", nil)
	require.ErrorIs(t, err, db.ErrConflict)

	hist, err := h.Store.WalletHistory(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.WalletSale, hist[0].Type)
	assert.Equal(t, int64(13000), hist[0].Amount)

	p, err := h.Store.ProfileByID(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(13000), p.WalletBalance)

	got, err := h.Store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, got.Status)
	assert.NotNil(t, got.PaidAt)
	assert.Len(t, got.Items, 2)
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	seller := mustProfile(t, h.Store, "Vendeur", "vendeur@pensezy.cm", models.ProfileSeller)
	buyer := mustProfile(t, h.Store, "Acheteur", "acheteur@pensezy.cm", models.ProfileUser)
	b := mustActiveHybrid(t, h.Store, seller.ID, "Le Monde s'effondre")
	physical := b.Listings[1].ID

	order, err := h.Store.CreateOrder(ctx, buyer.ID, []market.OrderLine{{ListingID: physical, Quantity: 4}})
	require.NoError(t, err)
	l, _ := h.Store.ListingByID(ctx, physical)
	assert.Equal(t, 6, *l.Stock)

	_, err = h.Store.CreateOrder(ctx, buyer.ID, []market.OrderLine{{ListingID: physical, Quantity: 7}})
	require.ErrorIs(t, err, market.ErrOutOfStock)

	require.NoError(t, h.Store.CancelOrder(ctx, order.ID))
	l, _ = h.Store.ListingByID(ctx, physical)
	assert.Equal(t, 10, *l.Stock)

	require.ErrorIs(t, h.Store.CancelOrder(ctx, order.ID), db.ErrConflict)
	require.ErrorIs(t, h.Store.CancelOrder(ctx, uuid.New()), db.ErrNotFound)
}

func TestWithdrawals(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	seller := mustProfile(t, h.Store, "Vendeur", "vendeur@pensezy.cm", models.ProfileSeller)
	_, err := h.DB.Exec(`UPDATE profiles SET wallet_balance = 10000 WHERE id = $1`, seller.ID)
	require.NoError(t, err)

	_, err = h.Store.RequestWithdrawal(ctx, seller.ID, 12000)
	require.ErrorIs(t, err, db.ErrInsufficientFunds)

	w1, err := h.Store.RequestWithdrawal(ctx, seller.ID, 4000)
	require.NoError(t, err)
	w2, err := h.Store.RequestWithdrawal(ctx, seller.ID, 6000)
	require.NoError(t, err)

	p, _ := h.Store.ProfileByID(ctx, seller.ID)
	assert.Equal(t, int64(0), p.WalletBalance)

	done, err := h.Store.CompleteWithdrawal(ctx, w1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WalletCompleted, done.Status)

	rej, err := h.Store.RejectWithdrawal(ctx, w2.ID, "IBAN invalide")
	require.NoError(t, err)
	assert.Equal(t, models.WalletRejected, rej.Status)
	p, _ = h.Store.ProfileByID(ctx, seller.ID)
	assert.Equal(t, int64(6000), p.WalletBalance)

	_, err = h.Store.RejectWithdrawal(ctx, w2.ID, "encore")
	require.ErrorIs(t, err, db.ErrConflict)
	p, _ = h.Store.ProfileByID(ctx, seller.ID)
	assert.Equal(t, int64(6000), p.WalletBalance, "no second refund")

	pending, err := h.Store.ListWithdrawals(ctx, models.WalletPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSearchAdmin_Camara(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	mustProfile(t, h.Store, "Aïssatou Camara", "aissatou@pensezy.cm", models.ProfileUser)
	mustProfile(t, h.Store, "Moussa Diallo", "m.camara@pensezy.cm", models.ProfileSeller)
	mustProfile(t, h.Store, "Jean Ngando", "jean@pensezy.cm", models.ProfileUser)

	profiles, books, orders, err := h.Store.SearchAdmin(ctx, "Camara")
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Empty(t, orders)

	sections := market.BuildSearch(profiles, books, orders)
	require.Len(t, sections, 1)
	assert.Equal(t, "Utilisateurs", sections[0].Title)
	require.Len(t, sections[0].Entries, 2)
	hrefs := []string{sections[0].Entries[0].Href, sections[0].Entries[1].Href}
	assert.ElementsMatch(t, []string{
		"/admin/users?search=aissatou%40pensezy.cm",
		"/admin/users?search=m.camara%40pensezy.cm",
	}, hrefs)
}

func TestDashboard(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	seller := mustProfile(t, h.Store, "Vendeur", "vendeur@pensezy.cm", models.ProfileSeller)
	buyer := mustProfile(t, h.Store, "Acheteur", "acheteur@pensezy.cm", models.ProfileUser)
	b := mustActiveHybrid(t, h.Store, seller.ID, "Trois prétendants, un mari")
	order, err := h.Store.CreateOrder(ctx, buyer.ID, []market.OrderLine{{ListingID: b.Listings[0].ID, Quantity: 1}})
	require.NoError(t, err)
	_, err = h.Store.MarkOrderPaid(ctx, order.ID, "manual", nil)
	require.NoError(t, err)

	st, err := h.Store.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Users)
	assert.Equal(t, 1, st.Sellers)
	assert.Equal(t, 2, st.ActiveListings)
	assert.Equal(t, 1, st.OrdersPaid)
	assert.Equal(t, int64(3000), st.Revenue)
}
