// Package vcard renders cards as vCard 3.0 contact files.
package vcard

import (
	"strings"
	"unicode"

	"github.com/meera/digicard/internal/domain"
)

// Render serializes a card into vCard 3.0 text. FN and ORG are always
// emitted, even when empty; every other property is emitted only when its
// source field is populated. Lines are joined with CRLF as required by the
// contact-import ecosystem. The function is pure and total: the worst-case
// output is the four mandatory lines plus END.
//
// Facebook, YouTube and WhatsApp handles are captured in the data model but
// deliberately excluded from the export.
func Render(card *domain.Card) string {
	roles := card.EffectiveRoles()
	var first domain.Role
	if len(roles) > 0 {
		first = roles[0]
	}

	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:" + escape(card.DisplayName),
		"ORG:" + escape(first.Company),
	}

	if title := resolveTitle(first, card); title != "" {
		lines = append(lines, "TITLE:"+escape(title))
	}
	if card.Phone != "" {
		lines = append(lines, "TEL;TYPE=CELL,VOICE:"+stripSpace(card.Phone))
	}
	if card.Email != "" {
		lines = append(lines, "EMAIL;TYPE=WORK:"+card.Email)
	}
	if card.Address != "" {
		// Street value sits in the 3rd of the 7 ADR positions.
		lines = append(lines, "ADR;TYPE=WORK:;;"+escape(card.Address)+";;;;")
	}
	if card.Website != "" {
		lines = append(lines, "URL:"+card.Website)
	}
	if card.Instagram != "" {
		lines = append(lines, "X-SOCIALPROFILE;TYPE=instagram:"+card.Instagram)
	}
	if card.LinkedIn != "" {
		lines = append(lines, "X-SOCIALPROFILE;TYPE=linkedin:"+card.LinkedIn)
	}
	if card.Twitter != "" {
		lines = append(lines, "X-SOCIALPROFILE;TYPE=twitter:"+card.Twitter)
	}

	lines = append(lines, "END:VCARD")
	return strings.Join(lines, "\r\n")
}

// Filename derives the download name from the display name: "contact" when
// empty, spaces replaced with underscores, ".vcf" suffix.
func Filename(displayName string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "contact"
	}
	return strings.ReplaceAll(name, " ", "_") + ".vcf"
}

// resolveTitle picks the TITLE value: the first effective role's
// designation, then the legacy designation, then the legacy title. Only the
// first line of a multi-line value is used.
func resolveTitle(first domain.Role, card *domain.Card) string {
	title := first.Designation
	if title == "" {
		title = card.Designation
	}
	if title == "" {
		title = card.Title
	}
	title, _, _ = strings.Cut(title, "\n")
	return strings.TrimSpace(title)
}

// stripSpace removes all whitespace, not just the leading and trailing
// runs, so "+1 555 000" exports as "+1555000".
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// escape applies vCard 3.0 text escaping to property values that may carry
// structural characters. Plain values pass through unchanged.
func escape(s string) string {
	s = strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
	).Replace(s)
	return s
}
