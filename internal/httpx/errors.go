package httpx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/academic"
	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/market"
	"github.com/ksInsandji/pensezy-edition/internal/observability"
	"github.com/ksInsandji/pensezy-edition/internal/planning"
)

// Error is an error with the HTTP status and the French message shown to the user.
type Error struct {
	Status int
	Msg    string
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Msg, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

const (
	msgUnauthorized = "Authentification requise"
	msgForbidden    = "Accès refusé"
	msgInternal     = "Une erreur est survenue, veuillez réessayer"
)

func Unauthorized() *Error { return &Error{Status: fiber.StatusUnauthorized, Msg: msgUnauthorized} }
func Forbidden() *Error    { return &Error{Status: fiber.StatusForbidden, Msg: msgForbidden} }

func BadRequest(msg string) *Error { return &Error{Status: fiber.StatusBadRequest, Msg: msg} }
func NotFound(msg string) *Error   { return &Error{Status: fiber.StatusNotFound, Msg: msg} }
func Conflict(msg string) *Error   { return &Error{Status: fiber.StatusConflict, Msg: msg} }

// Rule wraps a domain rule violation as a 400 whose message is the error text.
func Rule(err error) *Error {
	return &Error{Status: fiber.StatusBadRequest, Msg: err.Error(), Err: err}
}

// Classify maps any error to the status and message sent to the client. The boolean
// reports an unexpected (server side) failure.
func Classify(err error) (*Error, bool) {
	var he *Error
	if errors.As(err, &he) {
		return he, he.Status >= fiber.StatusInternalServerError
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return &Error{Status: fe.Code, Msg: fe.Message}, fe.Code >= fiber.StatusInternalServerError
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return &Error{Status: fiber.StatusBadRequest, Msg: "Données invalides", Fields: translate(ve), Err: err}, false
	}
	for _, r := range ruleErrors {
		if errors.Is(err, r) {
			return &Error{Status: fiber.StatusBadRequest, Msg: ruleMsg(err), Err: err}, false
		}
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return &Error{Status: fiber.StatusNotFound, Msg: "Ressource introuvable", Err: err}, false
	case errors.Is(err, db.ErrConflict), errors.Is(err, db.ErrInvalidState):
		return &Error{Status: fiber.StatusConflict, Msg: conflictMsg(err), Err: err}, false
	case errors.Is(err, db.ErrInsufficientFunds):
		return &Error{Status: fiber.StatusBadRequest, Msg: "Solde insuffisant", Err: err}, false
	}
	return &Error{Status: fiber.StatusInternalServerError, Msg: msgInternal, Err: err}, true
}

// Business rule violations surface as 400 with the rule's French detail.
var ruleErrors = []error{
	market.ErrTransition, market.ErrInvalidProduct, market.ErrEmptyOrder, market.ErrNotForSale,
	market.ErrOutOfStock, market.ErrNotPending, market.ErrAmount, market.ErrQuantity,
	academic.ErrThemeDecision, academic.ErrJuryMembers, academic.ErrJurySlot,
	academic.ErrJuryOverlap, academic.ErrNotEligible,
	planning.ErrInvalidParams,
}

// ruleMsg drops the package sentinels from the error text, keeping the detail.
func ruleMsg(err error) string {
	msg := err.Error()
	for _, r := range ruleErrors {
		msg = strings.ReplaceAll(msg, r.Error()+": ", "")
	}
	return msg
}

// conflictMsg keeps the detail added by the store ("commande déjà paid") when present.
func conflictMsg(err error) string {
	msg := err.Error()
	for _, s := range []error{db.ErrConflict, db.ErrInvalidState} {
		prefix := s.Error() + ": "
		if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return msg[len(prefix):]
		}
	}
	return "Opération impossible dans l'état actuel"
}

// ErrorHandler renders every error returned by a handler in the envelope. Unexpected
// errors are logged and sent to Sentry, the client only sees a generic message.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		he, internal := Classify(err)
		if internal {
			log.Error("handler failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			ctx := ctxutil.WithOp(c.UserContext(), c.Method()+" "+c.Route().Path)
			observability.CaptureCtx(ctx, err)
		}
		env := Envelope{Error: he.Msg}
		if len(he.Fields) > 0 {
			env.Fields = he.Fields
		}
		return c.Status(he.Status).JSON(env)
	}
}
