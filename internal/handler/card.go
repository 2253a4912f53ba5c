package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/meera/digicard/internal/domain"
	"github.com/meera/digicard/internal/service"
)

// CardHandler handles card endpoints.
type CardHandler struct {
	cards *service.CardService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cards *service.CardService) *CardHandler {
	return &CardHandler{cards: cards}
}

// cardView is the API projection of a card: the record plus the resolved
// role list, so clients never have to deal with the legacy mirror columns.
type cardView struct {
	*domain.Card
	Roles []domain.Role `json:"roles"`
}

func newCardView(card *domain.Card) cardView {
	roles := card.EffectiveRoles()
	if roles == nil {
		roles = []domain.Role{}
	}
	return cardView{Card: card, Roles: roles}
}

type formView struct {
	Cards   []cardView `json:"cards"`
	Editing *cardView  `json:"editing,omitempty"`
}

// Form returns the acting user's cards plus the card under edit, when the
// edit query parameter names a card they own. An unowned or missing edit id
// just leaves the edit slot empty.
func (h *CardHandler) Form(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var editID int64
	if v := c.QueryParam("edit"); v != "" {
		editID, _ = strconv.ParseInt(v, 10, 64)
	}

	form, err := h.cards.RenderForm(c.Request().Context(), user, editID)
	if err != nil {
		return err
	}

	view := formView{Cards: make([]cardView, 0, len(form.Cards))}
	for i := range form.Cards {
		view.Cards = append(view.Cards, newCardView(&form.Cards[i]))
	}
	if form.Editing != nil {
		editing := newCardView(form.Editing)
		view.Editing = &editing
	}
	return JSON(c, http.StatusOK, view)
}

type saveCardRequest struct {
	CardID int64  `form:"card_id"`
	Label  string `form:"label" validate:"max=80"`

	DisplayName   string `form:"display_name" validate:"max=120"`
	Phone         string `form:"phone" validate:"max=40"`
	Email         string `form:"email" validate:"max=150"`
	Address       string `form:"address" validate:"max=300"`
	Website       string `form:"website" validate:"max=300"`
	PaymentHandle string `form:"payment_handle" validate:"max=120"`

	Designation string `form:"designation" validate:"max=150"`
	Company     string `form:"company" validate:"max=150"`
	Bio         string `form:"bio" validate:"max=2000"`
	Title       string `form:"title" validate:"max=150"`

	ImageShape    string `form:"image_shape"`
	ImagePosition string `form:"image_position"`
	IdentityAlign string `form:"identity_align"`
	Theme         string `form:"theme" validate:"max=60"`

	Instagram string `form:"instagram" validate:"max=200"`
	LinkedIn  string `form:"linkedin" validate:"max=200"`
	Twitter   string `form:"twitter" validate:"max=200"`
	Facebook  string `form:"facebook" validate:"max=200"`
	YouTube   string `form:"youtube" validate:"max=200"`
	WhatsApp  string `form:"whatsapp" validate:"max=200"`
}

// Save creates a card, or updates one when card_id names an existing card
// owned by the acting user. The multipart form carries parallel role lists
// and optional image uploads.
func (h *CardHandler) Save(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var req saveCardRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid form body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fmt.Errorf("%w: expected multipart form", domain.ErrInvalidInput)
	}

	in := service.SaveCardInput{
		CardID:        req.CardID,
		Label:         req.Label,
		DisplayName:   req.DisplayName,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		Website:       req.Website,
		PaymentHandle: req.PaymentHandle,
		Designations:  formList(form, "designation"),
		Companies:     formList(form, "company"),
		Bios:          formList(form, "bio"),
		Designation:   req.Designation,
		Company:       req.Company,
		Bio:           req.Bio,
		Title:         req.Title,
		ImageShape:    req.ImageShape,
		ImagePosition: req.ImagePosition,
		IdentityAlign: req.IdentityAlign,
		Theme:         req.Theme,
		Instagram:     req.Instagram,
		LinkedIn:      req.LinkedIn,
		Twitter:       req.Twitter,
		Facebook:      req.Facebook,
		YouTube:       req.YouTube,
		WhatsApp:      req.WhatsApp,
	}

	profile, closeProfile, err := openUpload(c, "profile_image")
	if err != nil {
		return err
	}
	defer closeProfile()
	in.ProfileUpload = profile

	banner, closeBanner, err := openUpload(c, "banner_image")
	if err != nil {
		return err
	}
	defer closeBanner()
	in.BannerUpload = banner

	id, err := h.cards.Save(c.Request().Context(), in, user)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]int64{"card_id": id})
}

// View returns a card by its public numeric id.
func (h *CardHandler) View(c echo.Context) error {
	id, err := cardID(c)
	if err != nil {
		return err
	}

	card, err := h.cards.View(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, newCardView(card))
}

// Delete removes a card owned by the acting user.
func (h *CardHandler) Delete(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	id, err := cardID(c)
	if err != nil {
		return err
	}

	if err := h.cards.Delete(c.Request().Context(), id, user); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateLabel changes the per-owner label of a card.
func (h *CardHandler) UpdateLabel(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	id, err := cardID(c)
	if err != nil {
		return err
	}

	var body struct {
		Label string `json:"label" validate:"max=80"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	if err := h.cards.UpdateLabel(c.Request().Context(), id, body.Label, user); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
}

// UpdateImage replaces a single card image. The kind path segment selects
// profile or banner.
func (h *CardHandler) UpdateImage(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	id, err := cardID(c)
	if err != nil {
		return err
	}

	var kind domain.ImageKind
	switch c.Param("kind") {
	case string(domain.ImageKindProfile):
		kind = domain.ImageKindProfile
	case string(domain.ImageKindBanner):
		kind = domain.ImageKindBanner
	default:
		return fmt.Errorf("%w: image kind must be profile or banner", domain.ErrInvalidInput)
	}

	up, closeUpload, err := openUpload(c, "image")
	if err != nil {
		return err
	}
	if up == nil {
		return fmt.Errorf("%w: missing image file", domain.ErrInvalidInput)
	}
	defer closeUpload()

	name, err := h.cards.UpdateImage(c.Request().Context(), id, kind, *up, user)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]string{"stored": name})
}

// Export downloads the card as a vCard 3.0 contact file.
func (h *CardHandler) Export(c echo.Context) error {
	id, err := cardID(c)
	if err != nil {
		return err
	}

	export, err := h.cards.ExportContact(c.Request().Context(), id)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(export.Filename)))
	return c.Blob(http.StatusOK, "text/vcard; charset=utf-8", []byte(export.VCard))
}

func cardID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: card id must be a positive integer", domain.ErrInvalidInput)
	}
	return id, nil
}

// formList reads a repeated form field, accepting both the bracketed and
// bare field names that different form builders produce.
func formList(form *multipart.Form, key string) []string {
	if values, ok := form.Value[key+"[]"]; ok {
		return values
	}
	return form.Value[key]
}

// openUpload opens an optional multipart file field. A missing field is not
// an error; the returned cleanup is always safe to defer.
func openUpload(c echo.Context, field string) (*service.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, func() {}, nil
	}

	src, err := fh.Open()
	if err != nil {
		return nil, func() {}, fmt.Errorf("open upload %s: %w", field, err)
	}
	return &service.Upload{Filename: fh.Filename, Reader: src}, func() { src.Close() }, nil
}
