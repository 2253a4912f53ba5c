package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// MaxRoles caps the number of role entries a card may carry. Entries past
// the cap are silently dropped, not rejected.
const MaxRoles = 8

// DefaultTheme is applied when a card is saved without an explicit theme.
const DefaultTheme = "midnight"

// ImageShape controls how the profile image is cropped.
type ImageShape string

const (
	ImageShapeRound  ImageShape = "round"
	ImageShapeSquare ImageShape = "square"
)

// Alignment positions the image or identity block on the rendered card.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// ImageKind selects which of the two card images an upload targets.
type ImageKind string

const (
	ImageKindProfile ImageKind = "profile"
	ImageKindBanner  ImageKind = "banner"
)

// Role is one designation/company/bio triple on a card. A card carries an
// ordered list of up to MaxRoles of these; the list is the canonical source
// of role data.
type Role struct {
	Designation string `json:"designation,omitempty"`
	Company     string `json:"company,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// IsZero reports whether every component of the role is empty.
func (r Role) IsZero() bool {
	return r.Designation == "" && r.Company == "" && r.Bio == ""
}

// Card is one shareable digital business-card record, owned by exactly one
// user.
//
// Roles holds the structured role list serialized as JSON. The scalar
// Designation/Company/Bio/Title columns are legacy mirrors of the first
// role, kept for records created before multi-role support; business logic
// must go through EffectiveRoles rather than read them directly.
type Card struct {
	ID      int64   `json:"id" db:"id"`
	OwnerID int64   `json:"owner_id" db:"owner_id"`
	Label   *string `json:"label,omitempty" db:"label"`

	DisplayName   string `json:"display_name" db:"display_name"`
	Phone         string `json:"phone" db:"phone"`
	Email         string `json:"email" db:"email"`
	Address       string `json:"address" db:"address"`
	Website       string `json:"website" db:"website"`
	PaymentHandle string `json:"payment_handle" db:"payment_handle"`

	Roles string `json:"-" db:"roles"`

	Designation string `json:"-" db:"designation"`
	Company     string `json:"-" db:"company"`
	Bio         string `json:"-" db:"bio"`
	Title       string `json:"-" db:"title"`

	ProfileImage *string `json:"profile_image,omitempty" db:"profile_image"`
	BannerImage  *string `json:"banner_image,omitempty" db:"banner_image"`

	ImageShape    ImageShape `json:"image_shape" db:"image_shape"`
	ImagePosition Alignment  `json:"image_position" db:"image_position"`
	IdentityAlign Alignment  `json:"identity_align" db:"identity_align"`
	Theme         string     `json:"theme" db:"theme"`

	Instagram string `json:"instagram" db:"instagram"`
	LinkedIn  string `json:"linkedin" db:"linkedin"`
	Twitter   string `json:"twitter" db:"twitter"`
	Facebook  string `json:"facebook" db:"facebook"`
	YouTube   string `json:"youtube" db:"youtube"`
	WhatsApp  string `json:"whatsapp" db:"whatsapp"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OwnedBy reports whether the acting user owns the card. A nil user never
// owns anything.
func (c *Card) OwnedBy(u *User) bool {
	return u != nil && c.OwnerID == u.ID
}

// BuildRoles zips the three parallel form lists into an ordered role list.
// Entries beyond the 8th submitted position are dropped before anything
// else, then components are trimmed and triples with no non-empty component
// are filtered out. Truncation is positional: a non-empty triple at
// position 9 is dropped even when every earlier triple filters out as
// empty.
func BuildRoles(designations, companies, bios []string) []Role {
	n := len(designations)
	if len(companies) > n {
		n = len(companies)
	}
	if len(bios) > n {
		n = len(bios)
	}
	if n > MaxRoles {
		n = MaxRoles
	}

	roles := make([]Role, 0, n)
	for i := 0; i < n; i++ {
		r := Role{
			Designation: strings.TrimSpace(at(designations, i)),
			Company:     strings.TrimSpace(at(companies, i)),
			Bio:         strings.TrimSpace(at(bios, i)),
		}
		if !r.IsZero() {
			roles = append(roles, r)
		}
	}
	return roles
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}

// SetRoles stores the structured role list and syncs the legacy mirror
// columns to the first entry. With an empty list the blob is cleared and
// the mirror columns are left as assigned by the caller, preserving
// single-role submissions from older clients.
func (c *Card) SetRoles(roles []Role) {
	if len(roles) == 0 {
		c.Roles = ""
		return
	}

	data, err := json.Marshal(roles)
	if err != nil {
		// Marshalling a slice of plain string structs cannot fail; keep
		// the previous blob rather than corrupt it if it somehow does.
		return
	}
	c.Roles = string(data)

	first := roles[0]
	c.Designation = first.Designation
	c.Company = first.Company
	c.Bio = first.Bio
	c.Title = first.Designation
}

// EffectiveRoles returns the ordered role list to use for display and
// export. The structured blob wins when present and well-formed; a missing
// or malformed blob degrades to a single role built from the legacy
// columns, or to an empty list when those are empty too. It never fails.
func (c *Card) EffectiveRoles() []Role {
	if c.Roles != "" {
		var roles []Role
		if err := json.Unmarshal([]byte(c.Roles), &roles); err == nil {
			return roles
		}
	}

	legacy := Role{
		Designation: c.Designation,
		Company:     c.Company,
		Bio:         c.Bio,
	}
	if legacy.Designation == "" {
		legacy.Designation = c.Title
	}
	if legacy.IsZero() {
		return nil
	}
	return []Role{legacy}
}

// NormalizeLabel trims the per-owner label and maps empty to unset.
func NormalizeLabel(label string) *string {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	return &label
}

// NormalizeImageShape maps arbitrary input to a valid shape, defaulting to
// round.
func NormalizeImageShape(v string) ImageShape {
	if ImageShape(v) == ImageShapeSquare {
		return ImageShapeSquare
	}
	return ImageShapeRound
}

// NormalizeAlignment maps arbitrary input to a valid alignment, defaulting
// to center.
func NormalizeAlignment(v string) Alignment {
	switch Alignment(v) {
	case AlignLeft:
		return AlignLeft
	case AlignRight:
		return AlignRight
	default:
		return AlignCenter
	}
}

// NormalizeTheme falls back to the default theme key for empty input. Theme
// keys are opaque to the core; unknown keys pass through.
func NormalizeTheme(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultTheme
	}
	return v
}
