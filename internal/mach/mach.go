// Package mach parses and evaluates machine constraint expressions found in
// mach(...) descriptor tags.
//
// An expression is a disjunction of branches; each branch is a conjunction
// of terms. Two surface forms are accepted:
//
//	X=O X=P           -> X in {O,P}
//	X!=O, !X=O        -> X not in {O}
//	X=O Y=P           -> X=O && Y=P
//	X=O Y=P Z=Q Y=R   -> (X=O && Y=P && Z=Q) || (X=O && Y=R)
//	X=O && Y=P        -> X=O && Y=P
//	X=O || Y=P        -> X=O || Y=P
//
// The first explicit && or || switches the rest of the expression to the
// explicit form. Parenthesized grouping is not supported.
package mach

import (
	"regexp"
	"strings"
)

// DefaultTag is the tag implied by a bare token (IP22 means CPUBOARD=IP22).
const DefaultTag = "CPUBOARD"

// Op is the comparison applied by a Term.
type Op uint8

const (
	// OpEqualsAny matches when the provided value is one of Values.
	OpEqualsAny Op = iota
	// OpNotEqualsAll matches when the provided value is none of Values.
	OpNotEqualsAll
)

func (o Op) String() string {
	switch o {
	case OpEqualsAny:
		return "="
	case OpNotEqualsAll:
		return "!="
	default:
		return "?"
	}
}

// Term is a single tag comparison.
type Term struct {
	Tag    string
	Op     Op
	Values []string
}

func (t Term) String() string {
	parts := make([]string, len(t.Values))
	for i, v := range t.Values {
		parts[i] = t.Tag + t.Op.String() + v
	}
	if len(parts) == 1 {
		return parts[0]
	}
	sep := " || "
	if t.Op == OpNotEqualsAll {
		sep = " && "
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// Branch is a conjunction of terms.
type Branch []Term

// Tree is a disjunction of branches.
type Tree []Branch

func (t Tree) String() string {
	branches := make([]string, len(t))
	for i, b := range t {
		terms := make([]string, len(b))
		for j, term := range b {
			terms[j] = term.String()
		}
		branches[i] = strings.Join(terms, " && ")
	}
	return strings.Join(branches, " || ")
}

var (
	operatorRE = regexp.MustCompile(`\|\||&&`)

	// Alternatives are tried in order; the bare tag form must stay last.
	atomRE = regexp.MustCompile(`!([[:graph:]]+)=([[:graph:]]*)` +
		`|([[:graph:]]+)!=([[:graph:]]*)` +
		`|([[:graph:]]+)=([[:graph:]]*)` +
		`|(\|\|)|(&&)` +
		`|([[:graph:]]+)`)
)

type atomKind uint8

const (
	atomCompare atomKind = iota
	atomOr
	atomAnd
)

type atom struct {
	kind  atomKind
	tag   string
	op    Op
	value string
}

// tokenize splits an expression into comparison and operator atoms.
func tokenize(text string) []atom {
	text = strings.ReplaceAll(text, "==", "=")
	text = operatorRE.ReplaceAllString(text, " $0 ")

	var atoms []atom
	for _, field := range strings.Fields(text) {
		for _, m := range atomRE.FindAllStringSubmatch(field, -1) {
			switch {
			case m[1] != "":
				atoms = append(atoms, atom{kind: atomCompare, tag: m[1], op: OpNotEqualsAll, value: m[2]})
			case m[3] != "":
				atoms = append(atoms, atom{kind: atomCompare, tag: m[3], op: OpNotEqualsAll, value: m[4]})
			case m[5] != "":
				atoms = append(atoms, atom{kind: atomCompare, tag: m[5], op: OpEqualsAny, value: m[6]})
			case m[7] != "":
				atoms = append(atoms, atom{kind: atomOr})
			case m[8] != "":
				atoms = append(atoms, atom{kind: atomAnd})
			case m[9] != "":
				atoms = append(atoms, atom{kind: atomCompare, tag: DefaultTag, op: OpEqualsAny, value: m[9]})
			}
		}
	}
	return atoms
}

// Parse builds the constraint tree for text. Every comparison is recorded
// in cat, which may be nil.
func Parse(text string, cat *Catalog) Tree {
	var (
		tree   Tree
		branch Branch
		legacy = true
	)

	for _, a := range tokenize(text) {
		switch a.kind {
		case atomCompare:
			cat.observe(a.tag, a.value)
			if legacy && len(branch) > 0 {
				last := &branch[len(branch)-1]
				if last.Tag == a.tag && last.Op == OpEqualsAny && a.op == OpEqualsAny {
					last.Values = append(last.Values, a.value)
					continue
				}
				if i := lastIndexOfTag(branch, a.tag); i >= 0 {
					tree = append(tree, branch)
					branch = cloneTerms(branch[:i])
				}
			}
			branch = append(branch, Term{Tag: a.tag, Op: a.op, Values: []string{a.value}})
		case atomOr:
			legacy = false
			if len(branch) > 0 {
				tree = append(tree, branch)
			}
			branch = nil
		case atomAnd:
			legacy = false
		}
	}

	if len(branch) > 0 {
		tree = append(tree, branch)
	}
	return tree
}

func lastIndexOfTag(b Branch, tag string) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i].Tag == tag {
			return i
		}
	}
	return -1
}

func cloneTerms(terms []Term) Branch {
	out := make(Branch, len(terms))
	for i, t := range terms {
		out[i] = Term{Tag: t.Tag, Op: t.Op, Values: append([]string(nil), t.Values...)}
	}
	return out
}

// Match reports whether tags satisfy the tree. A tree without branches
// places no constraint and always matches.
func (t Tree) Match(tags Tags, cat *Catalog) bool {
	if len(t) == 0 {
		return true
	}
	for _, b := range t {
		if b.match(tags, cat) {
			return true
		}
	}
	return false
}

func (b Branch) match(tags Tags, cat *Catalog) bool {
	result := true
	// All terms are visited so that every missing tag gets reported.
	for _, term := range b {
		if !term.match(tags, cat) {
			result = false
		}
	}
	return result
}

func (t Term) match(tags Tags, cat *Catalog) bool {
	value, ok := tags[t.Tag]
	if !ok {
		cat.miss(t.Tag)
		return false
	}
	found := false
	for _, v := range t.Values {
		if v == value {
			found = true
			break
		}
	}
	if t.Op == OpEqualsAny {
		return found
	}
	return !found
}

// Evaluate parses text and matches it against tags. An empty expression
// always matches.
func Evaluate(text string, tags Tags, cat *Catalog) bool {
	if strings.TrimSpace(text) == "" {
		return true
	}
	return Parse(text, cat).Match(tags, cat)
}
