// Package httpx holds the fiber plumbing shared by both APIs: the {data, error, message}
// envelope, error mapping, request validation and pagination.
package httpx

import "github.com/gofiber/fiber/v2"

type Envelope struct {
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Fields  any    `json:"fields,omitempty"`
}

func OK(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{Data: data})
}

func Created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Data: data})
}

// Message answers 200 with a human message next to the data.
func Message(c *fiber.Ctx, msg string, data any) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{Data: data, Message: msg})
}

// Paged is the data payload of list endpoints.
type Paged[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}
