package category

import (
	"fmt"
	"strings"
)

// Category is the closed set of exam sections a question or a session can
// belong to. Mock is the composite full-exam category; every question is
// tagged with one of the other values.
type Category int

const (
	Reading Category = iota
	Vocabulary
	Grammar
	Math
	Mock
)

type names struct {
	display string
	slug    string
}

var table = [...]names{
	Reading:    {display: "Reading Comprehension", slug: "reading"},
	Vocabulary: {display: "Vocabulary", slug: "vocab"},
	Grammar:    {display: "Grammar & Writing", slug: "grammar"},
	Math:       {display: "Mathematics", slug: "math"},
	Mock:       {display: "Full Mock Test", slug: "mock"},
}

// All returns every category in declaration order.
func All() []Category {
	out := make([]Category, len(table))
	for i := range table {
		out[i] = Category(i)
	}
	return out
}

// Subjects returns the non-composite categories.
func Subjects() []Category {
	out := make([]Category, 0, len(table)-1)
	for _, c := range All() {
		if !c.IsComposite() {
			out = append(out, c)
		}
	}
	return out
}

func (c Category) Valid() bool {
	return c >= 0 && int(c) < len(table)
}

// IsComposite reports whether the category spans several subjects.
func (c Category) IsComposite() bool {
	return c == Mock
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return table[c].display
}

// Slug is the short lowercase form used in URLs and on the command line.
func (c Category) Slug() string {
	if !c.Valid() {
		return ""
	}
	return table[c].slug
}

// Parse accepts a display name or a slug, case-insensitively.
func Parse(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for i, n := range table {
		if strings.EqualFold(s, n.display) || strings.EqualFold(s, n.slug) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(table[c].display), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
