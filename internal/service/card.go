package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/meera/digicard/internal/domain"
	"github.com/meera/digicard/internal/vcard"
)

// CardStore defines the card data access interface consumed by CardService.
type CardStore interface {
	FindByID(ctx context.Context, id int64) (*domain.Card, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Card, error)
	Create(ctx context.Context, card *domain.Card) (*domain.Card, error)
	Update(ctx context.Context, card *domain.Card) error
	UpdateLabel(ctx context.Context, id int64, label *string) error
	UpdateImage(ctx context.Context, id int64, kind domain.ImageKind, name string) error
	Delete(ctx context.Context, id int64) error
}

// FileStore persists uploaded images. Save rejects files outside the image
// allow list with domain.ErrUnsupportedUpload.
type FileStore interface {
	Save(ctx context.Context, r io.Reader, prefix, filename string) (string, error)
}

// CardService owns the card lifecycle: normalization on save, ownership
// checks on every mutation, and the contact export.
type CardService struct {
	cards CardStore
	files FileStore
}

// NewCardService creates a new CardService.
func NewCardService(cards CardStore, files FileStore) *CardService {
	return &CardService{cards: cards, files: files}
}

// Upload is a pending image upload from a multipart form.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// SaveCardInput is the form-shaped payload for a card save. The three role
// lists are parallel: index i across them forms one role triple. Scalar
// Designation/Company/Bio/Title carry single-role submissions from clients
// that predate the role lists.
type SaveCardInput struct {
	CardID int64
	Label  string

	DisplayName   string
	Phone         string
	Email         string
	Address       string
	Website       string
	PaymentHandle string

	Designations []string
	Companies    []string
	Bios         []string

	Designation string
	Company     string
	Bio         string
	Title       string

	ImageShape    string
	ImagePosition string
	IdentityAlign string
	Theme         string

	Instagram string
	LinkedIn  string
	Twitter   string
	Facebook  string
	YouTube   string
	WhatsApp  string

	ProfileUpload *Upload
	BannerUpload  *Upload
}

// Save normalizes the payload and persists it. When CardID names an
// existing card owned by the acting user the row is updated in place;
// otherwise a new card is created for the acting user. A submitted id that
// is missing or owned by someone else falls back to create rather than
// erroring. Returns the persisted card id.
func (s *CardService) Save(ctx context.Context, in SaveCardInput, actingUser *domain.User) (int64, error) {
	if actingUser == nil {
		return 0, domain.ErrUnauthorized
	}

	card, err := s.resolveTarget(ctx, in.CardID, actingUser)
	if err != nil {
		return 0, err
	}
	update := card != nil
	if !update {
		card = &domain.Card{OwnerID: actingUser.ID}
	}

	card.Label = domain.NormalizeLabel(in.Label)
	card.DisplayName = strings.TrimSpace(in.DisplayName)
	card.Phone = strings.TrimSpace(in.Phone)
	card.Email = strings.TrimSpace(in.Email)
	card.Address = strings.TrimSpace(in.Address)
	card.Website = strings.TrimSpace(in.Website)
	card.PaymentHandle = strings.TrimSpace(in.PaymentHandle)

	card.ImageShape = domain.NormalizeImageShape(in.ImageShape)
	card.ImagePosition = domain.NormalizeAlignment(in.ImagePosition)
	card.IdentityAlign = domain.NormalizeAlignment(in.IdentityAlign)
	card.Theme = domain.NormalizeTheme(in.Theme)

	card.Instagram = strings.TrimSpace(in.Instagram)
	card.LinkedIn = strings.TrimSpace(in.LinkedIn)
	card.Twitter = strings.TrimSpace(in.Twitter)
	card.Facebook = strings.TrimSpace(in.Facebook)
	card.YouTube = strings.TrimSpace(in.YouTube)
	card.WhatsApp = strings.TrimSpace(in.WhatsApp)

	// Legacy scalars first; SetRoles overrides them from roles[0] whenever
	// the structured list is non-empty.
	card.Designation = strings.TrimSpace(in.Designation)
	card.Company = strings.TrimSpace(in.Company)
	card.Bio = strings.TrimSpace(in.Bio)
	card.Title = strings.TrimSpace(in.Title)
	card.SetRoles(domain.BuildRoles(in.Designations, in.Companies, in.Bios))

	// A missing or rejected upload must never clear an existing reference.
	if err := s.applyUpload(ctx, card, domain.ImageKindProfile, in.ProfileUpload); err != nil {
		return 0, err
	}
	if err := s.applyUpload(ctx, card, domain.ImageKindBanner, in.BannerUpload); err != nil {
		return 0, err
	}

	if update {
		if err := s.cards.Update(ctx, card); err != nil {
			return 0, err
		}
		return card.ID, nil
	}

	created, err := s.cards.Create(ctx, card)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

// resolveTarget loads the update target, or nil when the save should fall
// back to the create path. Only store failures other than not-found are
// surfaced.
func (s *CardService) resolveTarget(ctx context.Context, cardID int64, actingUser *domain.User) (*domain.Card, error) {
	if cardID == 0 {
		return nil, nil
	}
	existing, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !existing.OwnedBy(actingUser) {
		return nil, nil
	}
	return existing, nil
}

func (s *CardService) applyUpload(ctx context.Context, card *domain.Card, kind domain.ImageKind, up *Upload) error {
	if up == nil {
		return nil
	}
	name, err := s.files.Save(ctx, up.Reader, string(kind), up.Filename)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedUpload) {
			return nil
		}
		return err
	}
	if kind == domain.ImageKindBanner {
		card.BannerImage = &name
	} else {
		card.ProfileImage = &name
	}
	return nil
}

// FormData is the edit-form projection: the acting user's cards plus the
// card being edited, when one was requested and is owned by them.
type FormData struct {
	Cards   []domain.Card `json:"cards"`
	Editing *domain.Card  `json:"editing,omitempty"`
}

// RenderForm loads the form data. An edit id that is missing or not owned
// by the acting user leaves Editing nil; that soft denial is deliberate on
// the edit-view path.
func (s *CardService) RenderForm(ctx context.Context, actingUser *domain.User, editID int64) (*FormData, error) {
	if actingUser == nil {
		return nil, domain.ErrUnauthorized
	}

	cards, err := s.cards.ListByOwner(ctx, actingUser.ID)
	if err != nil {
		return nil, err
	}

	form := &FormData{Cards: cards}
	if editID != 0 {
		card, err := s.cards.FindByID(ctx, editID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if err == nil && card.OwnedBy(actingUser) {
			form.Editing = card
		}
	}
	return form, nil
}

// View loads a card for its public share page. No authentication required.
func (s *CardService) View(ctx context.Context, cardID int64) (*domain.Card, error) {
	return s.cards.FindByID(ctx, cardID)
}

// Delete removes a card permanently after the ownership check. Not-found
// and forbidden stay distinct outcomes.
func (s *CardService) Delete(ctx context.Context, cardID int64, actingUser *domain.User) error {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		return err
	}
	if !card.OwnedBy(actingUser) {
		return domain.ErrForbidden
	}
	return s.cards.Delete(ctx, cardID)
}

// UpdateLabel normalizes and stores a new per-owner label after the
// ownership check.
func (s *CardService) UpdateLabel(ctx context.Context, cardID int64, label string, actingUser *domain.User) error {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		return err
	}
	if !card.OwnedBy(actingUser) {
		return domain.ErrForbidden
	}
	return s.cards.UpdateLabel(ctx, cardID, domain.NormalizeLabel(label))
}

// UpdateImage stores a single new image for the card and returns the
// stored reference. A rejected upload surfaces domain.ErrUnsupportedUpload
// and leaves the existing reference untouched.
func (s *CardService) UpdateImage(ctx context.Context, cardID int64, kind domain.ImageKind, up Upload, actingUser *domain.User) (string, error) {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		return "", err
	}
	if !card.OwnedBy(actingUser) {
		return "", domain.ErrForbidden
	}

	name, err := s.files.Save(ctx, up.Reader, string(kind), up.Filename)
	if err != nil {
		return "", err
	}
	if err := s.cards.UpdateImage(ctx, cardID, kind, name); err != nil {
		return "", err
	}
	return name, nil
}

// ContactExport is a rendered vCard download.
type ContactExport struct {
	Filename string
	VCard    string
}

// ExportContact renders the card as a vCard 3.0 file. Public, like View.
func (s *CardService) ExportContact(ctx context.Context, cardID int64) (*ContactExport, error) {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return &ContactExport{
		Filename: vcard.Filename(card.DisplayName),
		VCard:    vcard.Render(card),
	}, nil
}
