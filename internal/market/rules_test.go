package market

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

func TestListingTransition(t *testing.T) {
	cases := []struct {
		from, to models.ListingStatus
		ok       bool
	}{
		{models.ListingPending, models.ListingActive, true},
		{models.ListingPending, models.ListingRejected, true},
		{models.ListingActive, models.ListingRejected, true},
		{models.ListingRejected, models.ListingActive, true},
		{models.ListingActive, models.ListingPending, false},
		{models.ListingRejected, models.ListingPending, false},
		{models.ListingActive, models.ListingActive, false},
		{models.ListingPending, "sold", false},
	}
	for _, tc := range cases {
		err := ListingTransition(tc.from, tc.to)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			assert.ErrorIs(t, err, ErrTransition, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestCanConfirm(t *testing.T) {
	assert.NoError(t, CanConfirm(models.OrderPending))
	assert.ErrorIs(t, CanConfirm(models.OrderPaid), ErrNotPending)
	assert.ErrorIs(t, CanConfirm(models.OrderCancelled), ErrNotPending)
}

func i64(v int64) *int64 { return &v }
func ip(v int) *int       { return &v }

func TestProductListings_Hybrid(t *testing.T) {
	ls, err := ProductInput{
		Kind: KindHybrid, Title: "Le Pagne noir",
		DigitalPrice: i64(3000), PhysicalPrice: i64(5000), Stock: ip(10),
	}.Listings()
	require.NoError(t, err)
	require.Len(t, ls, 2)
	assert.Equal(t, models.ListingDigital, ls[0].Kind)
	assert.Equal(t, int64(3000), ls[0].Price)
	assert.Nil(t, ls[0].Stock)
	assert.Equal(t, models.ListingPhysical, ls[1].Kind)
	assert.Equal(t, int64(5000), ls[1].Price)
	assert.Equal(t, 10, *ls[1].Stock)
	for _, l := range ls {
		assert.Equal(t, models.ListingPending, l.Status)
	}
}

func TestProductListings_Invalid(t *testing.T) {
	cases := map[string]ProductInput{
		"no title":            {Kind: KindDigital, DigitalPrice: i64(100)},
		"unknown kind":        {Kind: "audio", Title: "x"},
		"digital no price":    {Kind: KindDigital, Title: "x"},
		"physical no stock":   {Kind: KindPhysical, Title: "x", PhysicalPrice: i64(100)},
		"hybrid missing half": {Kind: KindHybrid, Title: "x", DigitalPrice: i64(100)},
		"zero price":          {Kind: KindDigital, Title: "x", DigitalPrice: i64(0)},
		"pdf required":        {Kind: KindDigital, Title: "x", DigitalPrice: i64(100), RequirePDF: true},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := in.Listings()
			assert.ErrorIs(t, err, ErrInvalidProduct)
		})
	}
}

func TestPriceOrder(t *testing.T) {
	seller := uuid.New()
	digital, physical, pending := uuid.New(), uuid.New(), uuid.New()
	listings := map[uuid.UUID]models.ListingView{
		digital:  {Listing: models.Listing{ID: digital, Kind: models.ListingDigital, Price: 3000, Status: models.ListingActive}, SellerID: seller, BookTitle: "A"},
		physical: {Listing: models.Listing{ID: physical, Kind: models.ListingPhysical, Price: 5000, Stock: ip(3), Status: models.ListingActive}, SellerID: seller, BookTitle: "B"},
		pending:  {Listing: models.Listing{ID: pending, Kind: models.ListingDigital, Price: 10, Status: models.ListingPending}},
	}

	items, total, err := PriceOrder([]OrderLine{
		{ListingID: digital, Quantity: 4},
		{ListingID: physical, Quantity: 1},
		{ListingID: physical, Quantity: 1},
	}, listings)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Quantity, "digital copies are sold one at a time")
	assert.Equal(t, 2, items[1].Quantity)
	assert.Equal(t, int64(3000+2*5000), total)

	_, _, err = PriceOrder([]OrderLine{{ListingID: physical, Quantity: 4}}, listings)
	assert.ErrorIs(t, err, ErrOutOfStock)

	_, _, err = PriceOrder([]OrderLine{{ListingID: pending, Quantity: 1}}, listings)
	assert.ErrorIs(t, err, ErrNotForSale)

	_, _, err = PriceOrder(nil, listings)
	assert.ErrorIs(t, err, ErrEmptyOrder)

	for _, n := range []int{0, -2} {
		_, _, err = PriceOrder([]OrderLine{{ListingID: physical, Quantity: n}}, listings)
		assert.ErrorIs(t, err, ErrQuantity, "quantity %d", n)
	}
}

func TestSellerCredits(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	credits := SellerCredits([]models.OrderItem{
		{SellerID: a, Quantity: 2, UnitPrice: 1000},
		{SellerID: b, Quantity: 1, UnitPrice: 3000},
		{SellerID: a, Quantity: 1, UnitPrice: 500},
	})
	require.Len(t, credits, 2)
	got := map[uuid.UUID]int64{}
	for _, c := range credits {
		got[c.SellerID] = c.Amount
	}
	assert.Equal(t, map[uuid.UUID]int64{a: 2500, b: 3000}, got)
}

func TestCheckWithdrawal(t *testing.T) {
	assert.NoError(t, CheckWithdrawal(1000, 1000))
	assert.ErrorIs(t, CheckWithdrawal(0, 1000), ErrAmount)
	assert.ErrorIs(t, CheckWithdrawal(1001, 1000), ErrAmount)
}
