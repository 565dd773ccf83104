package main

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/meigma/inst/internal/mach"
)

// machFlag collects repeated -m tag=value arguments.
type machFlag struct {
	pairs []string
}

var _ pflag.Value = (*machFlag)(nil)

func (m *machFlag) String() string {
	return strings.Join(m.pairs, ",")
}

func (m *machFlag) Set(s string) error {
	if _, err := mach.ParseTags([]string{s}); err != nil {
		return err
	}
	m.pairs = append(m.pairs, s)
	return nil
}

func (m *machFlag) Type() string {
	return "tag=value"
}

// Tags returns the collected tags.
func (m *machFlag) Tags() mach.Tags {
	tags, _ := mach.ParseTags(m.pairs) //nolint:errcheck // validated by Set
	return tags
}
