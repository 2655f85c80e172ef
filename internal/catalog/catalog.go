// Package catalog is the category registry: it loads the fixed category
// table and resolves arbitrary free-text labels to canonical category ids.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:embed categories.json
var defaultsFS embed.FS

// OtherID is the reserved fallback category.
const OtherID = "other"

// DefaultEmoji is the icon shown for categories the registry does not know.
const DefaultEmoji = "💬"

// Category is immutable reference data for one spending category.
type Category struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Emoji  string          `json:"emoji"`
	Budget decimal.Decimal `json:"budget"`
}

// Catalog resolves category labels. Read-only after construction.
type Catalog struct {
	cats   []Category
	byID   map[string]Category
	byName map[string]Category
}

// Default builds the registry from the embedded category table.
func Default() *Catalog {
	data, err := defaultsFS.ReadFile("categories.json")
	if err != nil {
		// The file is embedded at build time; this cannot fail at runtime.
		panic(fmt.Sprintf("read embedded categories: %v", err))
	}
	cat, err := parse(data)
	if err != nil {
		panic(fmt.Sprintf("parse embedded categories: %v", err))
	}
	return cat
}

// LoadFile builds the registry from an external JSON table, falling back to
// the embedded defaults when the path is empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}
	cat, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse categories file %s: %w", path, err)
	}
	return cat, nil
}

func parse(data []byte) (*Catalog, error) {
	var cats []Category
	if err := json.Unmarshal(data, &cats); err != nil {
		return nil, err
	}
	c := &Catalog{
		cats:   cats,
		byID:   make(map[string]Category, len(cats)),
		byName: make(map[string]Category, len(cats)),
	}
	for _, cat := range cats {
		if cat.ID == "" {
			continue
		}
		c.byID[strings.ToLower(cat.ID)] = cat
		if cat.Name != "" {
			c.byName[strings.ToLower(cat.Name)] = cat
		}
	}
	return c, nil
}

// All returns the registry's categories in table order.
func (c *Catalog) All() []Category {
	return append([]Category(nil), c.cats...)
}

// Known reports whether the id belongs to the registry.
func (c *Catalog) Known(id string) bool {
	_, ok := c.byID[strings.ToLower(id)]
	return ok
}

// Resolve normalizes a free-text category label to a canonical id. Matching
// is tried in order: exact id, exact display name, slugified input against
// ids, then against slugified names. Unmatched input resolves to its own
// slug so free-form categories can exist; empty input resolves to "other".
func (c *Catalog) Resolve(raw string) string {
	candidate := strings.ToLower(strings.TrimSpace(raw))
	if candidate == "" {
		return OtherID
	}
	if cat, ok := c.byID[candidate]; ok {
		return cat.ID
	}
	if cat, ok := c.byName[candidate]; ok {
		return cat.ID
	}
	slug := Slugify(candidate)
	if cat, ok := c.byID[slug]; ok {
		return cat.ID
	}
	for _, cat := range c.cats {
		if Slugify(cat.Name) == slug {
			return cat.ID
		}
	}
	return slug
}

// Describe looks up display metadata for a category id. Unknown ids get a
// synthesized title-cased name, the placeholder icon and a zero budget.
func (c *Catalog) Describe(id string) Category {
	if id == "" {
		id = OtherID
	}
	if cat, ok := c.byID[strings.ToLower(id)]; ok {
		return cat
	}
	return Category{
		ID:     id,
		Name:   titleFromSlug(id),
		Emoji:  DefaultEmoji,
		Budget: decimal.Zero,
	}
}

var slugRuns = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the input and collapses non-alphanumeric runs to a
// single underscore.
func Slugify(s string) string {
	slug := slugRuns.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return OtherID
	}
	return slug
}

var merchantRuns = regexp.MustCompile(`[^a-z0-9]+`)

var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeMerchant canonicalizes a merchant name for rule lookup:
// diacritics stripped, lowercased, non-alphanumeric runs collapsed to single
// spaces. "Café Starbucks " and "cafe STARBUCKS" normalize identically.
func NormalizeMerchant(raw string) string {
	if raw == "" {
		return ""
	}
	folded, _, err := transform.String(asciiFold, raw)
	if err != nil {
		folded = raw
	}
	var b strings.Builder
	for _, r := range folded {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(merchantRuns.ReplaceAllString(strings.ToLower(b.String()), " "))
}

func titleFromSlug(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
