package mach

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedTag is returned by ParseTags for arguments without '='.
var ErrMalformedTag = errors.New("mach: malformed machine tag")

// Tags maps machine tags to the value supplied for this target.
type Tags map[string]string

// ParseTags converts tag=value arguments into Tags. A repeated tag keeps the
// last value.
func ParseTags(pairs []string) (Tags, error) {
	tags := make(Tags, len(pairs))
	for _, p := range pairs {
		tag, value, ok := strings.Cut(p, "=")
		if !ok || tag == "" {
			return nil, fmt.Errorf("%w: %q (want tag=value)", ErrMalformedTag, p)
		}
		tags[tag] = value
	}
	return tags, nil
}

// Hint lists the values a descriptor uses for a tag that was not supplied.
type Hint struct {
	Tag    string
	Values []string
}

func (h Hint) String() string {
	return fmt.Sprintf("values in idb file for %s: %s", h.Tag, strings.Join(h.Values, ","))
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithMissingHandler installs fn to be called the first time a constraint
// refers to a tag that was not supplied.
func WithMissingHandler(fn func(tag string)) CatalogOption {
	return func(c *Catalog) {
		c.onMissing = fn
	}
}

// Catalog accumulates the tags and values seen while parsing constraints
// and remembers which tags were queried without a supplied value.
//
// A nil *Catalog is valid and records nothing.
type Catalog struct {
	values    map[string][]string
	missing   []string
	missed    map[string]bool
	onMissing func(tag string)
}

// NewCatalog returns an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		values: make(map[string][]string),
		missed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Catalog) observe(tag, value string) {
	if c == nil {
		return
	}
	seen := c.values[tag]
	for _, v := range seen {
		if v == value {
			return
		}
	}
	c.values[tag] = append(seen, value)
}

func (c *Catalog) miss(tag string) {
	if c == nil || c.missed[tag] {
		return
	}
	c.missed[tag] = true
	c.missing = append(c.missing, tag)
	if c.onMissing != nil {
		c.onMissing(tag)
	}
}

// Values returns the values seen for tag, in first-seen order.
func (c *Catalog) Values(tag string) []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.values[tag]...)
}

// Missing returns the tags that constraints asked for but were not supplied.
func (c *Catalog) Missing() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.missing...)
}

// Hints reports, for every missing tag, the values observed for it.
func (c *Catalog) Hints() []Hint {
	if c == nil {
		return nil
	}
	hints := make([]Hint, 0, len(c.missing))
	for _, tag := range c.missing {
		hints = append(hints, Hint{Tag: tag, Values: c.Values(tag)})
	}
	return hints
}
