package dialogue

import (
	"errors"
	"fmt"
	"strings"
)

// Contact is one entry of the in-memory, session-scoped contact list.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Alias string `json:"alias"`
	Bank  string `json:"bank"`
}

// DefaultContacts returns the pre-seeded demo contact list.
func DefaultContacts() []Contact {
	return []Contact{
		{ID: "ana", Name: "Ana López", Alias: "ANA123", Bank: "BBVA"},
		{ID: "carlos", Name: "Carlos Pérez", Alias: "CPZ890", Bank: "Santander"},
		{ID: "maria", Name: "María García", Alias: "MGA221", Bank: "Banorte"},
		{ID: "juan", Name: "Juan Torres", Alias: "JTR009", Bank: "Citibanamex"},
		{ID: "sofia", Name: "Sofía Díaz", Alias: "SDI777", Bank: "HSBC"},
	}
}

// ContactBook holds the session's contacts. Not safe for concurrent use; the
// owning controller sequences all access.
type ContactBook struct {
	list []Contact
}

// NewContactBook seeds a book with a copy of seed.
func NewContactBook(seed []Contact) *ContactBook {
	b := &ContactBook{list: make([]Contact, len(seed))}
	copy(b.list, seed)
	return b
}

// All returns the contacts in insertion order.
func (b *ContactBook) All() []Contact {
	return b.list
}

// Find returns the first contact whose name or alias contains q,
// case-insensitive, or nil.
func (b *ContactBook) Find(q string) *Contact {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	for i := range b.list {
		c := &b.list[i]
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Alias), q) {
			return c
		}
	}
	return nil
}

// ByID returns the contact with the given id, or nil.
func (b *ContactBook) ByID(id string) *Contact {
	for i := range b.list {
		if b.list[i].ID == id {
			return &b.list[i]
		}
	}
	return nil
}

// ErrIncompleteContact is returned when a new-contact field is empty.
var ErrIncompleteContact = errors.New("dialogue: name, alias and bank are required")

// Add creates a contact from the inline new-contact flow. All three fields
// are required; the id is slugified from the name and kept unique within the
// book.
func (b *ContactBook) Add(name, alias, bank string) (Contact, error) {
	name = strings.TrimSpace(name)
	alias = strings.TrimSpace(alias)
	bank = strings.TrimSpace(bank)
	if name == "" || alias == "" || bank == "" {
		return Contact{}, ErrIncompleteContact
	}

	id := slugify(name)
	if id == "" {
		id = "contacto"
	}
	base := id
	for n := 2; b.ByID(id) != nil; n++ {
		id = fmt.Sprintf("%s%d", base, n)
	}

	c := Contact{ID: id, Name: name, Alias: alias, Bank: bank}
	b.list = append(b.list, c)
	return c, nil
}

func slugify(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
