package mach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want Tree
	}{
		{
			name: "legacy same tag accumulates",
			expr: "X=A X=B",
			want: Tree{{{Tag: "X", Op: OpEqualsAny, Values: []string{"A", "B"}}}},
		},
		{
			name: "not equal forms",
			expr: "X!=O !Y=P",
			want: Tree{{
				{Tag: "X", Op: OpNotEqualsAll, Values: []string{"O"}},
				{Tag: "Y", Op: OpNotEqualsAll, Values: []string{"P"}},
			}},
		},
		{
			name: "legacy different tags conjoin",
			expr: "X=O Y=P",
			want: Tree{{
				{Tag: "X", Op: OpEqualsAny, Values: []string{"O"}},
				{Tag: "Y", Op: OpEqualsAny, Values: []string{"P"}},
			}},
		},
		{
			name: "legacy repeated tag splits branch",
			expr: "X=O Y=P Z=Q Y=R",
			want: Tree{
				{
					{Tag: "X", Op: OpEqualsAny, Values: []string{"O"}},
					{Tag: "Y", Op: OpEqualsAny, Values: []string{"P"}},
					{Tag: "Z", Op: OpEqualsAny, Values: []string{"Q"}},
				},
				{
					{Tag: "X", Op: OpEqualsAny, Values: []string{"O"}},
					{Tag: "Y", Op: OpEqualsAny, Values: []string{"R"}},
				},
			},
		},
		{
			name: "explicit and",
			expr: "X==O&&Y==P",
			want: Tree{{
				{Tag: "X", Op: OpEqualsAny, Values: []string{"O"}},
				{Tag: "Y", Op: OpEqualsAny, Values: []string{"P"}},
			}},
		},
		{
			name: "explicit or",
			expr: "X=O || Y=P",
			want: Tree{
				{{Tag: "X", Op: OpEqualsAny, Values: []string{"O"}}},
				{{Tag: "Y", Op: OpEqualsAny, Values: []string{"P"}}},
			},
		},
		{
			name: "explicit operator disables accumulation",
			expr: "X=O && Y=P X=Q",
			want: Tree{{
				{Tag: "X", Op: OpEqualsAny, Values: []string{"O"}},
				{Tag: "Y", Op: OpEqualsAny, Values: []string{"P"}},
				{Tag: "X", Op: OpEqualsAny, Values: []string{"Q"}},
			}},
		},
		{
			name: "bare token uses default tag",
			expr: "IP22 IP28",
			want: Tree{{{Tag: DefaultTag, Op: OpEqualsAny, Values: []string{"IP22", "IP28"}}}},
		},
		{
			name: "empty branches dropped",
			expr: "|| X=O ||",
			want: Tree{{{Tag: "X", Op: OpEqualsAny, Values: []string{"O"}}}},
		},
		{
			name: "empty",
			expr: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Parse(tt.expr, nil))
		})
	}
}

func TestParseSplitDoesNotAliasClosedBranch(t *testing.T) {
	t.Parallel()

	tree := Parse("X=O Y=P X=Q X=R", nil)
	require.Len(t, tree, 2)
	assert.Equal(t, []string{"O"}, tree[0][0].Values)
	assert.Equal(t, []string{"Q", "R"}, tree[1][0].Values)
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		tags Tags
		want bool
	}{
		{"accumulated first value", "X=A X=B", Tags{"X": "A"}, true},
		{"accumulated second value", "X=A X=B", Tags{"X": "B"}, true},
		{"accumulated other value", "X=A X=B", Tags{"X": "C"}, false},
		{"split first branch", "X=O Y=P Z=Q Y=R", Tags{"X": "O", "Y": "P", "Z": "Q"}, true},
		{"split second branch", "X=O Y=P Z=Q Y=R", Tags{"X": "O", "Y": "R"}, true},
		{"split missing tag", "X=O Y=P Z=Q Y=R", Tags{"X": "O", "Z": "Q"}, false},
		{"not equal matches", "X!=O", Tags{"X": "P"}, true},
		{"not equal rejects", "!X=O", Tags{"X": "O"}, false},
		{"not equal missing tag", "X!=O", Tags{}, false},
		{"explicit or", "X=O || Y=P", Tags{"Y": "P"}, true},
		{"explicit and", "X=O && Y=P", Tags{"X": "O", "Y": "Q"}, false},
		{"bare token", "IP22", Tags{DefaultTag: "IP22"}, true},
		{"empty", "", nil, true},
		{"empty with tags", "", Tags{"X": "O"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Evaluate(tt.expr, tt.tags, nil))
		})
	}
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	var missing []string
	cat := NewCatalog(WithMissingHandler(func(tag string) {
		missing = append(missing, tag)
	}))

	assert.False(t, Evaluate("GFXBOARD=ECLIPSE GFXBOARD=LIGHT", Tags{}, cat))
	assert.False(t, Evaluate("GFXBOARD=NEWPORT && MODE=64bit", Tags{"MODE": "64bit"}, cat))
	assert.True(t, Evaluate("CPUARCH!=R4000", Tags{"CPUARCH": "R5000"}, cat))

	assert.Equal(t, []string{"GFXBOARD"}, missing, "missing handler fires once per tag")
	assert.Equal(t, []string{"64bit"}, cat.Values("MODE"))
	assert.Equal(t, []string{"ECLIPSE", "LIGHT", "NEWPORT"}, cat.Values("GFXBOARD"))

	hints := cat.Hints()
	require.Len(t, hints, 1)
	assert.Equal(t, "values in idb file for GFXBOARD: ECLIPSE,LIGHT,NEWPORT", hints[0].String())
}

func TestNilCatalog(t *testing.T) {
	t.Parallel()

	var cat *Catalog
	assert.False(t, Evaluate("X=O", Tags{}, cat))
	assert.Nil(t, cat.Hints())
	assert.Nil(t, cat.Values("X"))
}

func TestParseTags(t *testing.T) {
	t.Parallel()

	tags, err := ParseTags([]string{"CPUBOARD=IP22", "MODE=32bit", "MODE=64bit", "EMPTY="})
	require.NoError(t, err)
	assert.Equal(t, Tags{"CPUBOARD": "IP22", "MODE": "64bit", "EMPTY": ""}, tags)

	_, err = ParseTags([]string{"CPUBOARD"})
	require.ErrorIs(t, err, ErrMalformedTag)

	_, err = ParseTags([]string{"=IP22"})
	require.ErrorIs(t, err, ErrMalformedTag)
}

func TestTreeString(t *testing.T) {
	t.Parallel()

	tree := Parse("X=O X=P Y!=Q || Z=R", nil)
	assert.Equal(t, "(X=O || X=P) && Y!=Q || Z=R", tree.String())
}
