package inst

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/meigma/inst/internal/archive"
	"github.com/meigma/inst/internal/fileops"
	"github.com/meigma/inst/internal/idb"
	"github.com/meigma/inst/internal/install"
	"github.com/meigma/inst/internal/mach"
	"github.com/meigma/inst/internal/ugid"
)

const descriptorExt = ".idb"

// Package is an opened descriptor with its archives bound.
type Package struct {
	base             string
	fs               afero.Fs
	log              *zap.Logger
	hooks            io.Writer
	privileged       *bool
	maxDecoderMemory uint64

	desc     *idb.Descriptor
	archives []*archive.Reader
	catalog  *mach.Catalog
	pool     *fileops.DecompressPool
}

// Open reads base.idb and binds every other base.* file as an archive.
//
// Archives that cannot be opened or that name files the descriptor does not
// list are reported as warnings; entries they bound before the problem stay
// usable.
func Open(base string, opts ...Option) (*Package, error) {
	p := &Package{
		base: base,
		fs:   afero.NewOsFs(),
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.catalog = mach.NewCatalog(mach.WithMissingHandler(func(tag string) {
		p.log.Warn("missing machine value", zap.String("tag", tag))
	}))
	p.pool = fileops.NewDecompressPool(p.maxDecoderMemory)

	f, err := p.fs.Open(base + descriptorExt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDescriptor, err)
	}
	desc, err := idb.Parse(f)
	_ = f.Close() //nolint:errcheck // read-only
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDescriptor, err)
	}
	p.desc = desc

	paths, err := p.archivePaths()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		r, err := archive.Open(p.fs, path, desc)
		if r == nil {
			p.log.Warn("can't open archive", zap.String("archive", path), zap.Error(err))
			continue
		}
		if err != nil {
			p.log.Warn("archive is corrupt, ignoring the rest of it", zap.String("archive", path), zap.Error(err))
		}
		p.log.Debug("bound archive", zap.String("archive", path), zap.Int("entries", r.Bound()))
		p.archives = append(p.archives, r)
	}
	return p, nil
}

// archivePaths lists base.* files other than the descriptor, sorted by name.
func (p *Package) archivePaths() ([]string, error) {
	dir, name := filepath.Split(p.base)
	if dir == "" {
		dir = "."
	}
	infos, err := afero.ReadDir(p.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	var paths []string
	for _, info := range infos {
		n := info.Name()
		if info.IsDir() || !strings.HasPrefix(n, name+".") || strings.HasSuffix(n, descriptorExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, n))
	}
	return paths, nil
}

// Close releases the archives.
func (p *Package) Close() error {
	var err error
	for _, r := range p.archives {
		err = multierr.Append(err, r.Close())
	}
	p.archives = nil
	return err
}

// Archives returns the paths of the bound archives.
func (p *Package) Archives() []string {
	out := make([]string, len(p.archives))
	for i, r := range p.archives {
		out[i] = r.Name()
	}
	return out
}

// Subsystems returns the subsystem names in first-seen order.
func (p *Package) Subsystems() []string {
	return p.desc.Subsystems()
}

// Tokens returns the tag names used in the descriptor.
func (p *Package) Tokens() []string {
	return p.desc.Tokens()
}

// Values returns the values used for token.
func (p *Package) Values(token string) []string {
	return p.desc.Values(token)
}

// Entries returns the entries whose subsystem matches any of patterns and
// whose machine constraint accepts tags, in descriptor order. No patterns
// selects every subsystem.
func (p *Package) Entries(patterns []string, tags Tags) ([]*Entry, error) {
	res, err := compile(patterns)
	if err != nil {
		return nil, err
	}
	var out []*Entry
	for _, e := range p.desc.Entries() {
		for _, re := range res {
			if idb.Match(e, re, tags, p.catalog) {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

func compile(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		patterns = []string{".*"}
	}
	res := make([]*regexp.Regexp, len(patterns))
	for i, s := range patterns {
		re, err := idb.CompilePattern(s)
		if err != nil {
			return nil, err
		}
		res[i] = re
	}
	return res, nil
}

// Files returns the paths of the selected entries.
func (p *Package) Files(patterns []string, tags Tags) ([]string, error) {
	entries, err := p.Entries(patterns, tags)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out, nil
}

// Check evaluates the selection and returns, for every machine tag a
// constraint needed but tags did not supply, the values the descriptor uses.
func (p *Package) Check(patterns []string, tags Tags) ([]Hint, error) {
	if _, err := p.Entries(patterns, tags); err != nil {
		return nil, err
	}
	return p.catalog.Hints(), nil
}

// Install extracts the selected entries below root.
func (p *Package) Install(ctx context.Context, patterns []string, root string, tags Tags) error {
	entries, err := p.Entries(patterns, tags)
	if err != nil {
		return err
	}
	return p.engine(root, true).Install(ctx, entries)
}

// Uninstall removes the selected entries from root, last entry first.
func (p *Package) Uninstall(ctx context.Context, patterns []string, root string, tags Tags) error {
	entries, err := p.Entries(patterns, tags)
	if err != nil {
		return err
	}
	return p.engine(root, false).Uninstall(ctx, entries)
}

// engine builds an install engine for root. Ownership lookups read the
// target's account database only when withIDs is set.
func (p *Package) engine(root string, withIDs bool) *install.Engine {
	opts := []install.Option{
		install.WithFS(p.fs),
		install.WithLogger(p.log),
		install.WithHookOutput(p.hooks),
		install.WithDecompressPool(p.pool),
	}
	if withIDs {
		resolver, err := ugid.Load(p.fs, root)
		if err != nil {
			p.log.Warn("can't read uid/gid database from target filesystem", zap.Error(err))
		}
		opts = append(opts, install.WithResolver(resolver))
	}
	if p.privileged != nil {
		opts = append(opts, install.WithPrivileged(*p.privileged))
	}
	return install.New(root, opts...)
}
