package marketapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/market"
	"github.com/ksInsandji/pensezy-edition/internal/models"
	"github.com/ksInsandji/pensezy-edition/internal/storage"
)

var errStorageOff = &httpx.Error{Status: fiber.StatusServiceUnavailable, Msg: "Stockage de fichiers indisponible"}

// CreateProduct takes a multipart form. Files go to storage before anything is written
// to the database; if the book insert fails the uploaded objects are removed.
func (h *Handler) CreateProduct(c *fiber.Ctx) error {
	seller, err := subjectID(c)
	if err != nil {
		return err
	}
	in, err := productInput(c)
	if err != nil {
		return err
	}
	cover, _ := c.FormFile("cover")
	pdf, _ := c.FormFile("pdf")
	in.HasPDF = pdf != nil
	in.RequirePDF = storage.IsEnabled(h.files)

	listings, err := in.Listings()
	if err != nil {
		return err
	}
	if (cover != nil || pdf != nil) && !storage.IsEnabled(h.files) {
		return errStorageOff
	}

	ctx := c.UserContext()
	var uploaded []string
	cleanup := func() {
		bg := context.WithoutCancel(ctx)
		for _, k := range uploaded {
			if err := h.files.Delete(bg, k); err != nil {
				h.log.Warn("orphan object left in storage", zap.String("key", k), zap.Error(err))
			}
		}
	}

	book := models.Book{
		SellerID:    seller,
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		Description: strings.TrimSpace(in.Description),
	}
	if cover != nil {
		key, err := h.uploadCover(ctx, cover)
		if err != nil {
			return err
		}
		uploaded = append(uploaded, key)
		u := h.files.PublicURL(key)
		book.CoverURL = &u
	}
	if pdf != nil {
		key, err := h.uploadPDF(ctx, pdf)
		if err != nil {
			cleanup()
			return err
		}
		uploaded = append(uploaded, key)
		book.FileKey = &key
	}

	created, err := h.store.CreateBookWithListings(ctx, book, listings)
	if err != nil {
		cleanup()
		return err
	}
	h.log.Info("product created", zap.String("book_id", created.ID.String()),
		zap.String("seller_id", seller.String()), zap.String("kind", string(in.Kind)))
	return httpx.Created(c, created)
}

func productInput(c *fiber.Ctx) (market.ProductInput, error) {
	in := market.ProductInput{
		Kind:        market.ProductKind(strings.ToLower(strings.TrimSpace(c.FormValue("kind")))),
		Title:       c.FormValue("title"),
		Author:      c.FormValue("author"),
		Description: c.FormValue("description"),
	}
	var err error
	if in.DigitalPrice, err = optInt64(c.FormValue("digital_price")); err != nil {
		return in, httpx.BadRequest("Prix numérique invalide")
	}
	if in.PhysicalPrice, err = optInt64(c.FormValue("physical_price")); err != nil {
		return in, httpx.BadRequest("Prix physique invalide")
	}
	stock, err := optInt64(c.FormValue("stock"))
	if err != nil {
		return in, httpx.BadRequest("Stock invalide")
	}
	if stock != nil {
		n := int(*stock)
		in.Stock = &n
	}
	return in, nil
}

func optInt64(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > storage.MaxUploadSize {
		return nil, httpx.BadRequest("Fichier trop volumineux (20 Mo maximum)")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, storage.MaxUploadSize+1))
}

func (h *Handler) uploadCover(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	raw, err := readUpload(fh)
	if err != nil {
		return "", err
	}
	img, err := storage.NormalizeCover(bytes.NewReader(raw))
	if errors.Is(err, storage.ErrNotImage) {
		return "", httpx.BadRequest("La couverture doit être une image (JPEG, PNG)")
	}
	if err != nil {
		return "", err
	}
	key := storage.NewKey("covers", "cover.jpg")
	if err := h.files.Upload(ctx, key, bytes.NewReader(img), storage.CoverMimeType); err != nil {
		return "", err
	}
	return key, nil
}

func (h *Handler) uploadPDF(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	raw, err := readUpload(fh)
	if err != nil {
		return "", err
	}
	if !bytes.HasPrefix(raw, []byte("%PDF-")) {
		return "", httpx.BadRequest("Le fichier du livre doit être un PDF")
	}
	key := storage.NewKey("books", fh.Filename)
	if !strings.HasSuffix(key, ".pdf") {
		key += ".pdf"
	}
	if err := h.files.Upload(ctx, key, bytes.NewReader(raw), "application/pdf"); err != nil {
		return "", err
	}
	return key, nil
}

func (h *Handler) MyBooks(c *fiber.Ctx) error {
	seller, err := subjectID(c)
	if err != nil {
		return err
	}
	books, err := h.store.BooksBySeller(c.UserContext(), seller)
	if err != nil {
		return err
	}
	return httpx.OK(c, nonNil(books))
}

type withdrawalRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// RequestWithdrawal debits the wallet now; a rejection by an admin refunds it.
func (h *Handler) RequestWithdrawal(c *fiber.Ctx) error {
	seller, err := subjectID(c)
	if err != nil {
		return err
	}
	var req withdrawalRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	p, err := h.store.ProfileByID(ctx, seller)
	if err != nil {
		return err
	}
	if err := market.CheckWithdrawal(req.Amount, p.WalletBalance); err != nil {
		return err
	}
	tx, err := h.store.RequestWithdrawal(ctx, seller, req.Amount)
	if err != nil {
		return err
	}
	h.log.Info("withdrawal requested", zap.String("profile_id", seller.String()), zap.Int64("amount", req.Amount))
	return httpx.Created(c, tx)
}
