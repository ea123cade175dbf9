package httpx

import "github.com/gofiber/fiber/v2"

const (
	DefaultPerPage = 25
	MaxPerPage     = 200
)

type Page struct {
	Page    int
	PerPage int
}

func (p Page) Offset() int { return (p.Page - 1) * p.PerPage }

// PageFrom reads ?page and ?per_page, clamping to sane bounds.
func PageFrom(c *fiber.Ctx) Page {
	p := Page{Page: c.QueryInt("page", 1), PerPage: c.QueryInt("per_page", DefaultPerPage)}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func NewPaged[T any](items []T, total int, p Page) Paged[T] {
	if items == nil {
		items = []T{}
	}
	return Paged[T]{Items: items, Total: total, Page: p.Page, PerPage: p.PerPage}
}
