package market

import (
	"net/url"
	"strings"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const (
	MinSearchLen  = 2
	SearchPerKind = 5
)

type SearchEntry struct {
	Label string `json:"label"`
	Sub   string `json:"sub,omitempty"`
	Href  string `json:"href"`
}

type SearchSection struct {
	Title   string        `json:"title"`
	Entries []SearchEntry `json:"entries"`
}

// SearchQuery trims q and reports whether it is long enough to run.
func SearchQuery(q string) (string, bool) {
	q = strings.TrimSpace(q)
	return q, len([]rune(q)) >= MinSearchLen
}

// BuildSearch assembles the admin search dropdown. Empty sections are left out.
func BuildSearch(profiles []models.Profile, books []models.Book, orders []models.Order) []SearchSection {
	var out []SearchSection

	var users []SearchEntry
	for _, p := range limit(profiles) {
		users = append(users, SearchEntry{
			Label: p.FullName,
			Sub:   p.Email,
			Href:  "/admin/users?search=" + url.QueryEscape(p.Email),
		})
	}
	if len(users) > 0 {
		out = append(out, SearchSection{Title: "Utilisateurs", Entries: users})
	}

	var livres []SearchEntry
	for _, b := range limit(books) {
		livres = append(livres, SearchEntry{
			Label: b.Title,
			Sub:   b.Author,
			Href:  "/admin/books?search=" + url.QueryEscape(b.Title),
		})
	}
	if len(livres) > 0 {
		out = append(out, SearchSection{Title: "Livres", Entries: livres})
	}

	var cmds []SearchEntry
	for _, o := range limit(orders) {
		id := o.ID.String()
		cmds = append(cmds, SearchEntry{
			Label: "#" + id[:8],
			Sub:   o.BuyerEmail,
			Href:  "/admin/orders?search=" + id,
		})
	}
	if len(cmds) > 0 {
		out = append(out, SearchSection{Title: "Commandes", Entries: cmds})
	}
	return out
}

func limit[T any](in []T) []T {
	if len(in) > SearchPerKind {
		return in[:SearchPerKind]
	}
	return in
}
