package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/inst"
	"github.com/meigma/inst/internal/testutil"
)

const descriptor = `d 0755 root sys usr/foo foo.sw.base foo.sw.base
f 0644 root sys usr/foo/a foo.sw.base size(5) postop(echo a) foo.sw.base
f 0644 root sys usr/foo/gfx foo.sw.gfx size(3) mach(GFXBOARD=NEWPORT) foo.sw.gfx
`

func newFS(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/dist/foo.idb", []byte(descriptor), 0o644))
	data := testutil.BuildArchive(t, "inst archive",
		testutil.Record{Name: "usr/foo/a", Data: []byte("hello")},
		testutil.Record{Name: "usr/foo/gfx", Data: []byte("gfx")},
	)
	require.NoError(t, afero.WriteFile(fsys, "/dist/foo.sw", data, 0o644))
	return fsys
}

func run(t *testing.T, fsys afero.Fs, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(fsys)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVerbs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"subsystems", []string{"s", "/dist/foo"}, []string{"foo.sw.base\nfoo.sw.gfx\n"}},
		{"subsystems alias", []string{"subsystems", "/dist/foo"}, []string{"foo.sw.base\nfoo.sw.gfx\n"}},
		{"files", []string{"f", "/dist/foo", "-s", "foo.sw.base"}, []string{"usr/foo\nusr/foo/a\n"}},
		{"files with tag", []string{"files", "/dist/foo", "-m", "GFXBOARD=NEWPORT"}, []string{"usr/foo/a\nusr/foo/gfx\n"}},
		{"files quantifier pattern", []string{"f", "/dist/foo", "-s", "foo[.]sw[.]b.{1,4}"}, []string{"usr/foo\nusr/foo/a\n"}},
		{"files long", []string{"f", "/dist/foo", "-l", "-s", "foo.sw.base"}, []string{"d 0755 root     sys", "5B usr/foo/a"}},
		{"check", []string{"c", "/dist/foo"}, []string{"missing machine value", "values in idb file for GFXBOARD: NEWPORT"}},
		{"tokens", []string{"t", "/dist/foo"}, []string{"size\npostop\nmach\n"}},
		{"values", []string{"v", "/dist/foo", "-t", "size"}, []string{"5\n3\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := run(t, newFS(t), tt.args...)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestInstallAndUninstall(t *testing.T) {
	t.Parallel()

	fsys := newFS(t)
	out, err := run(t, fsys, "i", "/dist/foo", "-r", "/target", "-x", "-m", "GFXBOARD=NEWPORT")
	require.NoError(t, err)
	assert.Contains(t, out, "echo a\n")

	got, err := afero.ReadFile(fsys, "/target/usr/foo/gfx")
	require.NoError(t, err)
	assert.Equal(t, "gfx", string(got))

	_, err = run(t, fsys, "uninstall", "/dist/foo", "--root", "/target", "--mach", "GFXBOARD=NEWPORT")
	require.NoError(t, err)
	exists, err := afero.Exists(fsys, "/target/usr/foo")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestConfigFile(t *testing.T) {
	t.Parallel()

	fsys := newFS(t)
	config := "root: /cfgroot\nmach:\n  - GFXBOARD=NEWPORT\n"
	require.NoError(t, afero.WriteFile(fsys, "/etc/inst.yaml", []byte(config), 0o644))

	_, err := run(t, fsys, "i", "/dist/foo", "--config", "/etc/inst.yaml")
	require.NoError(t, err)

	exists, err := afero.Exists(fsys, "/cfgroot/usr/foo/gfx")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestConfigFileFlagWins(t *testing.T) {
	t.Parallel()

	fsys := newFS(t)
	require.NoError(t, afero.WriteFile(fsys, "/etc/inst.yaml", []byte("root: /cfgroot\n"), 0o644))

	_, err := run(t, fsys, "i", "/dist/foo", "--config", "/etc/inst.yaml", "-r", "/flagroot")
	require.NoError(t, err)

	exists, err := afero.Exists(fsys, "/flagroot/usr/foo/a")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = afero.Exists(fsys, "/cfgroot")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{"missing package", []string{"s", "/dist/none"}, inst.ErrNoDescriptor, ""},
		{"malformed tag", []string{"f", "/dist/foo", "-m", "GFXBOARD"}, nil, "malformed machine tag"},
		{"bad pattern", []string{"f", "/dist/foo", "-s", "foo.("}, inst.ErrPattern, ""},
		{"values without token", []string{"v", "/dist/foo"}, nil, "--token"},
		{"unknown verb", []string{"z", "/dist/foo"}, nil, "unknown command"},
		{"missing argument", []string{"s"}, nil, "accepts 1 arg"},
		{"missing config", []string{"s", "/dist/foo", "--config", "/etc/none.yaml"}, nil, "read config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := run(t, newFS(t), tt.args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestMachFlag(t *testing.T) {
	t.Parallel()

	var m machFlag
	require.NoError(t, m.Set("CPUBOARD=IP22"))
	require.NoError(t, m.Set("CPUBOARD=IP24"))
	require.NoError(t, m.Set("MODE=64bit"))
	require.Error(t, m.Set("=x"))

	assert.Equal(t, "tag=value", m.Type())
	assert.Equal(t, "CPUBOARD=IP22,CPUBOARD=IP24,MODE=64bit", m.String())
	assert.Equal(t, inst.Tags{"CPUBOARD": "IP24", "MODE": "64bit"}, m.Tags())
}

func TestOctal(t *testing.T) {
	t.Parallel()

	out, err := run(t, newFS(t), "f", "/dist/foo", "--long", "-m", "GFXBOARD=NEWPORT")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "d 0755 "), lines[0])
}
