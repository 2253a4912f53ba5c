package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/meera/digicard/internal/domain"
)

const cardColumns = `id, owner_id, label, display_name, phone, email, address,
	website, payment_handle, roles, designation, company, bio, title,
	profile_image, banner_image, image_shape, image_position, identity_align,
	theme, instagram, linkedin, twitter, facebook, youtube, whatsapp,
	created_at, updated_at`

// CardRepository handles card data access operations.
type CardRepository struct {
	db *sqlx.DB
}

// NewCardRepository creates a new CardRepository.
func NewCardRepository(db *sqlx.DB) *CardRepository {
	return &CardRepository{db: db}
}

// FindByID retrieves a card by its ID.
func (r *CardRepository) FindByID(ctx context.Context, id int64) (*domain.Card, error) {
	var card domain.Card
	err := r.db.GetContext(ctx, &card,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find card by id %d: %w", id, err)
	}
	return &card, nil
}

// ListByOwner retrieves all cards owned by a user, oldest first.
func (r *CardRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Card, error) {
	cards := []domain.Card{}
	err := r.db.SelectContext(ctx, &cards,
		`SELECT `+cardColumns+` FROM cards WHERE owner_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cards for owner %d: %w", ownerID, err)
	}
	return cards, nil
}

// Create inserts a new card row and returns the stored card.
func (r *CardRepository) Create(ctx context.Context, card *domain.Card) (*domain.Card, error) {
	var result domain.Card
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO cards (owner_id, label, display_name, phone, email, address,
		    website, payment_handle, roles, designation, company, bio, title,
		    profile_image, banner_image, image_shape, image_position,
		    identity_align, theme, instagram, linkedin, twitter, facebook,
		    youtube, whatsapp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		    $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		 RETURNING `+cardColumns,
		card.OwnerID, card.Label, card.DisplayName, card.Phone, card.Email,
		card.Address, card.Website, card.PaymentHandle, card.Roles,
		card.Designation, card.Company, card.Bio, card.Title,
		card.ProfileImage, card.BannerImage, card.ImageShape,
		card.ImagePosition, card.IdentityAlign, card.Theme, card.Instagram,
		card.LinkedIn, card.Twitter, card.Facebook, card.YouTube, card.WhatsApp,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("create card: %w", mapConstraint(err))
	}
	return &result, nil
}

// Update rewrites every mutable column of an existing row in a single
// statement. Image columns are included: the service layer is responsible
// for carrying existing references forward when no new upload is present.
func (r *CardRepository) Update(ctx context.Context, card *domain.Card) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET label = $1, display_name = $2, phone = $3, email = $4,
		    address = $5, website = $6, payment_handle = $7, roles = $8,
		    designation = $9, company = $10, bio = $11, title = $12,
		    profile_image = $13, banner_image = $14, image_shape = $15,
		    image_position = $16, identity_align = $17, theme = $18,
		    instagram = $19, linkedin = $20, twitter = $21, facebook = $22,
		    youtube = $23, whatsapp = $24, updated_at = NOW()
		 WHERE id = $25`,
		card.Label, card.DisplayName, card.Phone, card.Email, card.Address,
		card.Website, card.PaymentHandle, card.Roles, card.Designation,
		card.Company, card.Bio, card.Title, card.ProfileImage,
		card.BannerImage, card.ImageShape, card.ImagePosition,
		card.IdentityAlign, card.Theme, card.Instagram, card.LinkedIn,
		card.Twitter, card.Facebook, card.YouTube, card.WhatsApp, card.ID)
	if err != nil {
		return fmt.Errorf("update card %d: %w", card.ID, mapConstraint(err))
	}
	return requireRow(res, card.ID)
}

// UpdateLabel rewrites only the label column.
func (r *CardRepository) UpdateLabel(ctx context.Context, id int64, label *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET label = $1, updated_at = NOW() WHERE id = $2`, label, id)
	if err != nil {
		return fmt.Errorf("update card %d label: %w", id, mapConstraint(err))
	}
	return requireRow(res, id)
}

// UpdateImage rewrites only the image column selected by kind.
func (r *CardRepository) UpdateImage(ctx context.Context, id int64, kind domain.ImageKind, name string) error {
	column := "profile_image"
	if kind == domain.ImageKindBanner {
		column = "banner_image"
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET `+column+` = $1, updated_at = NOW() WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("update card %d %s: %w", id, column, err)
	}
	return requireRow(res, id)
}

// Delete removes the card row permanently. Stored image files are not
// reclaimed; that leak is accepted.
func (r *CardRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete card %d: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for card %d: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// mapConstraint converts a unique-violation on the per-owner label index
// into the domain conflict error.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrConflict
	}
	return err
}
