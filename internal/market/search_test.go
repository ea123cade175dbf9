package market

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

func TestSearchQuery(t *testing.T) {
	q, ok := SearchQuery("  Camara ")
	assert.True(t, ok)
	assert.Equal(t, "Camara", q)

	_, ok = SearchQuery(" é ")
	assert.False(t, ok)
}

func TestBuildSearch_UsersSection(t *testing.T) {
	profiles := []models.Profile{
		{FullName: "Aïssatou Camara", Email: "a.camara@mail.cm"},
		{FullName: "Camara Diallo", Email: "cd+shop@mail.cm"},
	}
	sections := BuildSearch(profiles, nil, nil)
	require.Len(t, sections, 1, "empty sections are omitted")
	assert.Equal(t, "Utilisateurs", sections[0].Title)
	require.Len(t, sections[0].Entries, 2)
	assert.Equal(t, "/admin/users?search=a.camara%40mail.cm", sections[0].Entries[0].Href)
	assert.Equal(t, "/admin/users?search=cd%2Bshop%40mail.cm", sections[0].Entries[1].Href)
}

func TestBuildSearch_CapsAndOrders(t *testing.T) {
	var books []models.Book
	for i := 0; i < 8; i++ {
		books = append(books, models.Book{Title: fmt.Sprintf("Livre %d", i)})
	}
	id := uuid.MustParse("5f1c2e3a-0000-4000-8000-000000000001")
	sections := BuildSearch(nil, books, []models.Order{{ID: id, BuyerEmail: "x@y.cm"}})
	require.Len(t, sections, 2)
	assert.Equal(t, "Livres", sections[0].Title)
	assert.Len(t, sections[0].Entries, SearchPerKind)
	assert.Equal(t, "Commandes", sections[1].Title)
	assert.Equal(t, "#5f1c2e3a", sections[1].Entries[0].Label)
	assert.Equal(t, "/admin/orders?search="+id.String(), sections[1].Entries[0].Href)
}
