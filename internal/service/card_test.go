package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meera/digicard/internal/domain"
)

type mockCardStore struct {
	cards  map[int64]*domain.Card
	nextID int64
}

func newMockCardStore() *mockCardStore {
	return &mockCardStore{cards: make(map[int64]*domain.Card)}
}

func (m *mockCardStore) FindByID(_ context.Context, id int64) (*domain.Card, error) {
	card, ok := m.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *card
	return &copied, nil
}

func (m *mockCardStore) ListByOwner(_ context.Context, ownerID int64) ([]domain.Card, error) {
	result := []domain.Card{}
	for id := int64(1); id <= m.nextID; id++ {
		if card, ok := m.cards[id]; ok && card.OwnerID == ownerID {
			result = append(result, *card)
		}
	}
	return result, nil
}

func (m *mockCardStore) Create(_ context.Context, card *domain.Card) (*domain.Card, error) {
	m.nextID++
	stored := *card
	stored.ID = m.nextID
	m.cards[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *mockCardStore) Update(_ context.Context, card *domain.Card) error {
	if _, ok := m.cards[card.ID]; !ok {
		return domain.ErrNotFound
	}
	stored := *card
	m.cards[card.ID] = &stored
	return nil
}

func (m *mockCardStore) UpdateLabel(_ context.Context, id int64, label *string) error {
	card, ok := m.cards[id]
	if !ok {
		return domain.ErrNotFound
	}
	card.Label = label
	return nil
}

func (m *mockCardStore) UpdateImage(_ context.Context, id int64, kind domain.ImageKind, name string) error {
	card, ok := m.cards[id]
	if !ok {
		return domain.ErrNotFound
	}
	if kind == domain.ImageKindBanner {
		card.BannerImage = &name
	} else {
		card.ProfileImage = &name
	}
	return nil
}

func (m *mockCardStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.cards[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.cards, id)
	return nil
}

// mockFileStore mirrors the disk store's allow-list behavior in memory.
type mockFileStore struct {
	saved []string
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

func (m *mockFileStore) Save(_ context.Context, _ io.Reader, prefix, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExts[ext] {
		return "", domain.ErrUnsupportedUpload
	}
	name := fmt.Sprintf("%s_%d%s", prefix, len(m.saved)+1, ext)
	m.saved = append(m.saved, name)
	return name, nil
}

func newTestService() (*CardService, *mockCardStore, *mockFileStore) {
	cards := newMockCardStore()
	files := &mockFileStore{}
	return NewCardService(cards, files), cards, files
}

func upload(name string) *Upload {
	return &Upload{Filename: name, Reader: strings.NewReader("bytes")}
}

var (
	owner    = &domain.User{ID: 1}
	stranger = &domain.User{ID: 2}
)

func TestSaveCreatesCard(t *testing.T) {
	svc, cards, _ := newTestService()

	id, err := svc.Save(context.Background(), SaveCardInput{
		Label:        "  Work  ",
		DisplayName:  "Jane Doe",
		Phone:        "+1 555 000",
		Designations: []string{"CTO"},
		Companies:    []string{"Acme"},
		Theme:        "",
		ImageShape:   "hexagon",
	}, owner)

	require.NoError(t, err)
	stored := cards.cards[id]
	require.NotNil(t, stored)
	assert.Equal(t, owner.ID, stored.OwnerID)
	require.NotNil(t, stored.Label)
	assert.Equal(t, "Work", *stored.Label)
	assert.Equal(t, "Jane Doe", stored.DisplayName)
	assert.Equal(t, "CTO", stored.Designation)
	assert.Equal(t, "Acme", stored.Company)
	assert.Equal(t, "CTO", stored.Title)
	assert.Equal(t, domain.ImageShapeRound, stored.ImageShape)
	assert.Equal(t, domain.AlignCenter, stored.ImagePosition)
	assert.Equal(t, domain.DefaultTheme, stored.Theme)

	roles := stored.EffectiveRoles()
	require.Len(t, roles, 1)
	assert.Equal(t, domain.Role{Designation: "CTO", Company: "Acme"}, roles[0])
}

func TestSaveBlankLabelBecomesUnset(t *testing.T) {
	svc, cards, _ := newTestService()

	id, err := svc.Save(context.Background(), SaveCardInput{Label: "   "}, owner)

	require.NoError(t, err)
	assert.Nil(t, cards.cards[id].Label)
}

func TestSaveUpdatesOwnedCard(t *testing.T) {
	svc, cards, _ := newTestService()
	created, _ := cards.Create(context.Background(), &domain.Card{OwnerID: owner.ID, DisplayName: "Old Name"})

	id, err := svc.Save(context.Background(), SaveCardInput{
		CardID:      created.ID,
		DisplayName: "New Name",
	}, owner)

	require.NoError(t, err)
	assert.Equal(t, created.ID, id)
	assert.Equal(t, "New Name", cards.cards[id].DisplayName)
	assert.Len(t, cards.cards, 1)
}

func TestSaveFallsBackToCreateForUnownedID(t *testing.T) {
	svc, cards, _ := newTestService()
	theirs, _ := cards.Create(context.Background(), &domain.Card{OwnerID: stranger.ID, DisplayName: "Theirs"})

	id, err := svc.Save(context.Background(), SaveCardInput{
		CardID:      theirs.ID,
		DisplayName: "Mine",
	}, owner)

	require.NoError(t, err)
	assert.NotEqual(t, theirs.ID, id)
	assert.Equal(t, "Theirs", cards.cards[theirs.ID].DisplayName)
	assert.Equal(t, "Mine", cards.cards[id].DisplayName)
	assert.Equal(t, owner.ID, cards.cards[id].OwnerID)
}

func TestSaveFallsBackToCreateForMissingID(t *testing.T) {
	svc, cards, _ := newTestService()

	id, err := svc.Save(context.Background(), SaveCardInput{CardID: 99, DisplayName: "Mine"}, owner)

	require.NoError(t, err)
	assert.Equal(t, "Mine", cards.cards[id].DisplayName)
}

func TestSaveRequiresActingUser(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Save(context.Background(), SaveCardInput{}, nil)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSavePreservesImagesWithoutUpload(t *testing.T) {
	svc, cards, _ := newTestService()
	existing := "profile_old.png"
	created, _ := cards.Create(context.Background(), &domain.Card{OwnerID: owner.ID, ProfileImage: &existing})

	_, err := svc.Save(context.Background(), SaveCardInput{CardID: created.ID}, owner)

	require.NoError(t, err)
	require.NotNil(t, cards.cards[created.ID].ProfileImage)
	assert.Equal(t, existing, *cards.cards[created.ID].ProfileImage)
}

func TestSaveIgnoresRejectedUpload(t *testing.T) {
	svc, cards, files := newTestService()
	existing := "profile_old.png"
	created, _ := cards.Create(context.Background(), &domain.Card{OwnerID: owner.ID, ProfileImage: &existing})

	_, err := svc.Save(context.Background(), SaveCardInput{
		CardID:        created.ID,
		ProfileUpload: upload("malware.exe"),
	}, owner)

	require.NoError(t, err)
	require.NotNil(t, cards.cards[created.ID].ProfileImage)
	assert.Equal(t, existing, *cards.cards[created.ID].ProfileImage)
	assert.Empty(t, files.saved)
}

func TestSaveStoresValidUploads(t *testing.T) {
	svc, cards, files := newTestService()

	id, err := svc.Save(context.Background(), SaveCardInput{
		ProfileUpload: upload("me.png"),
		BannerUpload:  upload("banner.webp"),
	}, owner)

	require.NoError(t, err)
	stored := cards.cards[id]
	require.NotNil(t, stored.ProfileImage)
	require.NotNil(t, stored.BannerImage)
	assert.Len(t, files.saved, 2)
}

func TestRenderForm(t *testing.T) {
	svc, cards, _ := newTestService()
	mine, _ := cards.Create(context.Background(), &domain.Card{OwnerID: owner.ID})
	theirs, _ := cards.Create(context.Background(), &domain.Card{OwnerID: stranger.ID})

	t.Run("lists only owned cards", func(t *testing.T) {
		form, err := svc.RenderForm(context.Background(), owner, 0)

		require.NoError(t, err)
		require.Len(t, form.Cards, 1)
		assert.Equal(t, mine.ID, form.Cards[0].ID)
		assert.Nil(t, form.Editing)
	})

	t.Run("owned edit id fills the edit slot", func(t *testing.T) {
		form, err := svc.RenderForm(context.Background(), owner, mine.ID)

		require.NoError(t, err)
		require.NotNil(t, form.Editing)
		assert.Equal(t, mine.ID, form.Editing.ID)
	})

	t.Run("unowned edit id is a soft denial", func(t *testing.T) {
		form, err := svc.RenderForm(context.Background(), owner, theirs.ID)

		require.NoError(t, err)
		assert.Nil(t, form.Editing)
	})

	t.Run("missing edit id is a soft denial", func(t *testing.T) {
		form, err := svc.RenderForm(context.Background(), owner, 404)

		require.NoError(t, err)
		assert.Nil(t, form.Editing)
	})
}

func TestDelete(t *testing.T) {
	t.Run("owner deletes the row", func(t *testing.T) {
		svc, cards, _ := newTestService()
		created, _ := cards.Create(context.Background(), &domain.Card{OwnerID: owner.ID})

		require.NoError(t, svc.Delete(context.Background(), created.ID, owner))
		assert.Empty(t, cards.cards)
	})

	t.Run("non-owner is denied and the row survives", func(t *testing.T) {
		svc, cards, _ := newTestService()
		created, _ := cards.Create(context.Background(), &domain.Card{OwnerID: owner.ID})

		err := svc.Delete(context.Background(), created.ID, stranger)

		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Len(t, cards.cards, 1)
	})

	t.Run("missing card is not found, not forbidden", func(t *testing.T) {
		svc, _, _ := newTestService()

		err := svc.Delete(context.Background(), 42, owner)

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NotErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestUpdateLabel(t *testing.T) {
	svc, cards, _ := newTestService()
	created, _ := cards.Create(context.Background(), &domain.Card{OwnerID: owner.ID})

	t.Run("owner sets a trimmed label", func(t *testing.T) {
		require.NoError(t, svc.UpdateLabel(context.Background(), created.ID, " Personal ", owner))
		require.NotNil(t, cards.cards[created.ID].Label)
		assert.Equal(t, "Personal", *cards.cards[created.ID].Label)
	})

	t.Run("blank label unsets", func(t *testing.T) {
		require.NoError(t, svc.UpdateLabel(context.Background(), created.ID, "  ", owner))
		assert.Nil(t, cards.cards[created.ID].Label)
	})

	t.Run("non-owner is denied", func(t *testing.T) {
		err := svc.UpdateLabel(context.Background(), created.ID, "hijack", stranger)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestUpdateImage(t *testing.T) {
	t.Run("stores a valid upload and returns the reference", func(t *testing.T) {
		svc, cards, _ := newTestService()
		created, _ := cards.Create(context.Background(), &domain.Card{OwnerID: owner.ID})

		name, err := svc.UpdateImage(context.Background(), created.ID, domain.ImageKindProfile, *upload("me.jpg"), owner)

		require.NoError(t, err)
		assert.NotEmpty(t, name)
		require.NotNil(t, cards.cards[created.ID].ProfileImage)
		assert.Equal(t, name, *cards.cards[created.ID].ProfileImage)
	})

	t.Run("banner kind targets the banner column", func(t *testing.T) {
		svc, cards, _ := newTestService()
		created, _ := cards.Create(context.Background(), &domain.Card{OwnerID: owner.ID})

		_, err := svc.UpdateImage(context.Background(), created.ID, domain.ImageKindBanner, *upload("wide.png"), owner)

		require.NoError(t, err)
		assert.Nil(t, cards.cards[created.ID].ProfileImage)
		assert.NotNil(t, cards.cards[created.ID].BannerImage)
	})

	t.Run("rejected extension keeps the existing reference", func(t *testing.T) {
		svc, cards, _ := newTestService()
		existing := "profile_old.png"
		created, _ := cards.Create(context.Background(), &domain.Card{OwnerID: owner.ID, ProfileImage: &existing})

		_, err := svc.UpdateImage(context.Background(), created.ID, domain.ImageKindProfile, *upload("payload.exe"), owner)

		assert.ErrorIs(t, err, domain.ErrUnsupportedUpload)
		require.NotNil(t, cards.cards[created.ID].ProfileImage)
		assert.Equal(t, existing, *cards.cards[created.ID].ProfileImage)
	})

	t.Run("non-owner is denied before storage is touched", func(t *testing.T) {
		svc, cards, files := newTestService()
		created, _ := cards.Create(context.Background(), &domain.Card{OwnerID: owner.ID})

		_, err := svc.UpdateImage(context.Background(), created.ID, domain.ImageKindProfile, *upload("me.png"), stranger)

		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Empty(t, files.saved)
	})
}

func TestExportContact(t *testing.T) {
	svc, cards, _ := newTestService()
	created, _ := cards.Create(context.Background(), &domain.Card{
		OwnerID:     owner.ID,
		DisplayName: "Jane Doe",
	})

	t.Run("renders filename and vcard text", func(t *testing.T) {
		export, err := svc.ExportContact(context.Background(), created.ID)

		require.NoError(t, err)
		assert.Equal(t, "Jane_Doe.vcf", export.Filename)
		assert.Equal(t, "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Jane Doe\r\nORG:\r\nEND:VCARD", export.VCard)
	})

	t.Run("missing card is not found", func(t *testing.T) {
		_, err := svc.ExportContact(context.Background(), 42)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
