// Package idb parses package descriptors.
//
// A descriptor line has six positional fields followed by a free-form tag
// tail:
//
//	f 0755 root sys usr/bin/foo foo.sw.base size(1234) cmpsize(800) f(77) foo.sw.base
//
// Tail tokens take the forms tag("value"), tag('value'), tag(value) or a
// bare tag. A bare tag containing a dot names the entry's subsystem.
package idb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/meigma/inst/internal/mach"
)

// Sentinel errors.
var (
	// ErrNoEntry is returned when an archive name has no unbound descriptor entry.
	ErrNoEntry = errors.New("idb: no descriptor entry")

	// ErrOversize is returned when an entry's payload would run past the
	// bytes left in its archive.
	ErrOversize = errors.New("idb: payload exceeds archive")

	// ErrPattern is returned for an invalid subsystem pattern.
	ErrPattern = errors.New("idb: invalid subsystem pattern")
)

const (
	maxFields = 7
	minFields = 5
)

var tailRE = regexp.MustCompile(`([[:graph:]]+)\("([^"]+)"\)` +
	`|([[:graph:]]+)\('([^']+)'\)` +
	`|([[:graph:]]+)\(([^)]+)\)` +
	`|([[:graph:]]+)`)

// Descriptor is the ordered set of entries of one package.
type Descriptor struct {
	entries    []*Entry
	subsystems []string
	seenSub    map[string]bool
	tokens     []string
	values     map[string][]string
}

func newDescriptor() *Descriptor {
	return &Descriptor{
		seenSub: make(map[string]bool),
		values:  make(map[string][]string),
	}
}

// Parse reads descriptor text.
func Parse(r io.Reader) (*Descriptor, error) {
	d := newDescriptor()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		d.parseLine(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	return d, nil
}

// ParseString parses descriptor text held in memory.
func ParseString(text string) *Descriptor {
	d := newDescriptor()
	for line := range strings.Lines(text) {
		d.parseLine(line)
	}
	return d
}

func (d *Descriptor) parseLine(line string) {
	fields := splitFields(line, maxFields)
	if len(fields) < minFields {
		return
	}

	e := &Entry{
		Type:  fields[0],
		Mode:  parseMode(fields[1]),
		Owner: fields[2],
		Group: fields[3],
		Path:  fields[4],
	}
	if len(fields) > 5 {
		e.Opaque = fields[5]
	}
	if len(fields) > 6 {
		d.parseTail(e, fields[6])
	}
	e.classify()

	d.addSubsystem(e.Subsystem)
	if _, ok := e.Extra[TagDeleteHistory]; ok {
		return
	}
	d.entries = append(d.entries, e)
}

func (d *Descriptor) parseTail(e *Entry, tail string) {
	for _, m := range tailRE.FindAllStringSubmatch(tail, -1) {
		var name, value string
		switch {
		case m[1] != "":
			name, value = m[1], m[2]
		case m[3] != "":
			name, value = m[3], m[4]
		case m[5] != "":
			name, value = m[5], m[6]
		default:
			name = m[7]
			if strings.Contains(name, ".") {
				e.Subsystem = name
				continue
			}
		}
		e.set(name, value)
		d.addToken(name, value)
	}
}

// splitFields splits on runs of whitespace into at most n fields; the last
// field keeps the remainder of the line.
func splitFields(s string, n int) []string {
	var fields []string
	s = strings.TrimLeft(s, " \t\r\n\v\f\x00")
	for s != "" {
		if len(fields) == n-1 {
			fields = append(fields, strings.TrimRight(s, " \t\r\n\v\f\x00"))
			break
		}
		i := strings.IndexAny(s, " \t\r\n\v\f\x00")
		if i < 0 {
			fields = append(fields, s)
			break
		}
		fields = append(fields, s[:i])
		s = strings.TrimLeft(s[i:], " \t\r\n\v\f\x00")
	}
	return fields
}

func (d *Descriptor) addSubsystem(name string) {
	if name == "" || d.seenSub[name] {
		return
	}
	d.seenSub[name] = true
	d.subsystems = append(d.subsystems, name)
}

func (d *Descriptor) addToken(name, value string) {
	seen, ok := d.values[name]
	if !ok {
		d.tokens = append(d.tokens, name)
	}
	for _, v := range seen {
		if v == value {
			return
		}
	}
	d.values[name] = append(seen, value)
}

// Entries returns all entries in descriptor order.
func (d *Descriptor) Entries() []*Entry {
	return d.entries
}

// Len returns the number of entries.
func (d *Descriptor) Len() int {
	return len(d.entries)
}

// Subsystems returns subsystem names in first-seen order. Entries marked for
// history deletion still contribute their subsystem.
func (d *Descriptor) Subsystems() []string {
	return append([]string(nil), d.subsystems...)
}

// Tokens returns the tail tag names seen, in first-seen order.
func (d *Descriptor) Tokens() []string {
	return append([]string(nil), d.tokens...)
}

// Values returns the values seen for token, in first-seen order.
func (d *Descriptor) Values(token string) []string {
	return append([]string(nil), d.values[token]...)
}

// CompilePattern anchors a subsystem pattern so it must match the whole name.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrPattern, pattern, err)
	}
	return re, nil
}

// Match reports whether e belongs to a subsystem matched by pattern and its
// machine constraint accepts tags.
func Match(e *Entry, pattern *regexp.Regexp, tags mach.Tags, cat *mach.Catalog) bool {
	if !pattern.MatchString(e.Subsystem) {
		return false
	}
	if !e.HasMach {
		return true
	}
	return mach.Evaluate(e.Mach, tags, cat)
}

// Matching returns the entries selected by pattern and tags, in order.
func (d *Descriptor) Matching(pattern *regexp.Regexp, tags mach.Tags, cat *mach.Catalog) []*Entry {
	var out []*Entry
	for _, e := range d.entries {
		if Match(e, pattern, tags, cat) {
			out = append(out, e)
		}
	}
	return out
}
