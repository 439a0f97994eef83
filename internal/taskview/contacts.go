package taskview

import (
	"slices"
	"strings"

	"github.com/sandeepkv93/taskdesk/internal/model"
)

// VisibleContacts filters by the contact search term over name, username and
// group, then sorts by the active field and order.
func VisibleContacts(contacts []model.Contact, vs ViewState) []model.Contact {
	term := strings.ToLower(strings.TrimSpace(vs.ContactSearch))
	out := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		if term == "" ||
			strings.Contains(strings.ToLower(c.Name), term) ||
			strings.Contains(strings.ToLower(c.Username), term) ||
			strings.Contains(strings.ToLower(c.Group), term) {
			out = append(out, c)
		}
	}

	field := vs.ContactSortField
	if !field.IsValid() {
		field = ContactSortName
	}
	desc := vs.ContactSortOrder == SortDesc
	slices.SortStableFunc(out, func(a, b model.Contact) int {
		c := strings.Compare(strings.ToLower(contactField(a, field)), strings.ToLower(contactField(b, field)))
		if desc {
			return -c
		}
		return c
	})
	return out
}

func contactField(c model.Contact, field ContactSortField) string {
	switch field {
	case ContactSortUsername:
		return c.Username
	case ContactSortGroup:
		return c.Group
	default:
		return c.Name
	}
}

// ContactGroups returns the distinct non-empty groups in sorted order.
func ContactGroups(contacts []model.Contact) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, c := range contacts {
		g := strings.TrimSpace(c.Group)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}

func FindContact(contacts []model.Contact, chatID model.FlexString) (model.Contact, bool) {
	for _, c := range contacts {
		if c.ChatID == chatID {
			return c, true
		}
	}
	return model.Contact{}, false
}

func FindCategory(categories []model.Category, name string) (model.Category, bool) {
	for _, c := range categories {
		if c.Name == name {
			return c, true
		}
	}
	return model.Category{}, false
}
