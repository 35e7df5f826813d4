package dialogue

import "testing"

func TestContactBookFind(t *testing.T) {
	b := NewContactBook(DefaultContacts())

	tests := []struct {
		query string
		want  string // contact ID, empty for miss
	}{
		{"ana", "ana"},
		{"Ana López", "ana"},
		{"  ANA  ", "ana"},
		{"cpz", "carlos"},   // alias, case-insensitive
		{"garcía", "maria"}, // partial name
		{"federico", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got := b.Find(tt.query)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("Find(%q) = %s, want miss", tt.query, got.ID)
		case tt.want != "" && got == nil:
			t.Errorf("Find(%q) = nil, want %s", tt.query, tt.want)
		case tt.want != "" && got.ID != tt.want:
			t.Errorf("Find(%q) = %s, want %s", tt.query, got.ID, tt.want)
		}
	}
}

func TestContactBookAdd(t *testing.T) {
	b := NewContactBook(DefaultContacts())

	c, err := b.Add("Luis Mora", "LMO111", "Azteca")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if c.ID != "luismora" {
		t.Errorf("id = %q, want luismora", c.ID)
	}
	if b.ByID("luismora") == nil {
		t.Error("added contact not retrievable by id")
	}

	// Same name gets a distinct id.
	c2, err := b.Add("Luis Mora", "LMO222", "BBVA")
	if err != nil {
		t.Fatalf("Add duplicate name: %v", err)
	}
	if c2.ID == c.ID {
		t.Errorf("duplicate name reused id %q", c2.ID)
	}

	if _, err := b.Add("", "X", "Y"); err == nil {
		t.Error("empty name should be rejected")
	}
	if _, err := b.Add("Nombre", "", "Y"); err == nil {
		t.Error("empty alias should be rejected")
	}
	if _, err := b.Add("Nombre", "X", ""); err == nil {
		t.Error("empty bank should be rejected")
	}
}

func TestContactBookSeedIsCopied(t *testing.T) {
	seed := DefaultContacts()
	b := NewContactBook(seed)
	seed[0].Name = "mutated"
	if b.All()[0].Name != "Ana López" {
		t.Error("book must not alias the seed slice")
	}
}
