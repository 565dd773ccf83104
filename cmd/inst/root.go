package main

import (
	"fmt"
	"io"
	"io/fs"
	"strings"

	units "github.com/docker/go-units"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meigma/inst"
	"github.com/meigma/inst/internal/logging"
)

type options struct {
	fs         afero.Fs
	root       string
	subsystems []string
	mach       machFlag
	token      string
	verbose    bool
	hooks      bool
	long       bool
	config     string
}

// verb is one package operation.
type verb struct {
	name  string
	alias string
	short string
	run   func(cmd *cobra.Command, o *options, pkg *inst.Package) error
}

var verbs = []verb{
	{"s", "subsystems", "List subsystems", runSubsystems},
	{"f", "files", "List files in the selected subsystems", runFiles},
	{"c", "check", "Report machine tags the selection needs but -m did not supply", runCheck},
	{"i", "install", "Install the selected subsystems", runInstall},
	{"u", "uninstall", "Uninstall the selected subsystems", runUninstall},
	{"t", "tokens", "List tokens used in the descriptor (debug)", runTokens},
	{"v", "values", "List values used for --token (debug)", runValues},
}

func newRootCommand(fsys afero.Fs) *cobra.Command {
	o := &options{fs: fsys}
	v := newViper(fsys)

	cmd := &cobra.Command{
		Use:   "inst <verb> <package>",
		Short: "Install and remove idb packages",
		Long: `inst reads <package>.idb and the archives <package>.* next to it.

Subsystem patterns are regular expressions matched against whole subsystem
names. Machine tags select entries with mach() constraints; known tags for
CPU are CPUBOARD=IPn, CPUARCH=Rn000 and MODE={32|64}bit, and for graphics
GFXBOARD, SUBGR and VIDEO.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyConfig(v, cmd, o.config)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.root, "root", "r", "/", "install base")
	pf.StringArrayVarP(&o.subsystems, "subsystem", "s", []string{".*"}, "subsystem pattern, repeatable")
	pf.VarP(&o.mach, "mach", "m", "machine tag, repeatable")
	pf.StringVarP(&o.token, "token", "t", "", "token for the v verb")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&o.hooks, "hooks", "x", false, "print pre/post/exit/remove commands")
	pf.BoolVarP(&o.long, "long", "l", false, "f: show type, mode, owner, group and size")
	pf.StringVar(&o.config, "config", "", "config file")

	for _, vb := range verbs {
		cmd.AddCommand(newVerbCommand(o, vb))
	}
	return cmd
}

func newVerbCommand(o *options, vb verb) *cobra.Command {
	return &cobra.Command{
		Use:     vb.name + " <package>",
		Aliases: []string{vb.alias},
		Short:   vb.short,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := o.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer pkg.Close()
			return vb.run(cmd, o, pkg)
		},
	}
}

func (o *options) open(cmd *cobra.Command, base string) (*inst.Package, error) {
	out := cmd.OutOrStdout()
	log, err := logging.New(out, logging.Level(o.verbose))
	if err != nil {
		return nil, err
	}
	opts := []inst.Option{inst.WithFS(o.fs), inst.WithLogger(log)}
	if o.hooks {
		opts = append(opts, inst.WithHookOutput(out))
	}
	pkg, err := inst.Open(base, opts...)
	if err != nil {
		return nil, err
	}
	log.Debug("opened package", zap.String("package", base), zap.Strings("archives", pkg.Archives()))
	return pkg, nil
}

func printLines(w io.Writer, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func runSubsystems(cmd *cobra.Command, _ *options, pkg *inst.Package) error {
	return printLines(cmd.OutOrStdout(), pkg.Subsystems())
}

func runTokens(cmd *cobra.Command, _ *options, pkg *inst.Package) error {
	return printLines(cmd.OutOrStdout(), pkg.Tokens())
}

func runValues(cmd *cobra.Command, o *options, pkg *inst.Package) error {
	if o.token == "" {
		return fmt.Errorf("the v verb needs --token")
	}
	return printLines(cmd.OutOrStdout(), pkg.Values(o.token))
}

func runFiles(cmd *cobra.Command, o *options, pkg *inst.Package) error {
	if !o.long {
		files, err := pkg.Files(o.subsystems, o.mach.Tags())
		if err != nil {
			return err
		}
		return printLines(cmd.OutOrStdout(), files)
	}

	entries, err := pkg.Entries(o.subsystems, o.mach.Tags())
	if err != nil {
		return err
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		size := "-"
		if e.HasSize {
			size = units.HumanSize(float64(e.Size))
		}
		lines[i] = fmt.Sprintf("%s %04o %-8s %-8s %9s %s", e.Type, octal(e.Mode), e.Owner, e.Group, size, e.Path)
	}
	return printLines(cmd.OutOrStdout(), lines)
}

// octal renders mode with its setuid, setgid and sticky bits in the
// traditional positions.
func octal(mode fs.FileMode) uint32 {
	m := uint32(mode.Perm())
	if mode&fs.ModeSetuid != 0 {
		m |= 0o4000
	}
	if mode&fs.ModeSetgid != 0 {
		m |= 0o2000
	}
	if mode&fs.ModeSticky != 0 {
		m |= 0o1000
	}
	return m
}

func runCheck(cmd *cobra.Command, o *options, pkg *inst.Package) error {
	hints, err := pkg.Check(o.subsystems, o.mach.Tags())
	if err != nil {
		return err
	}
	lines := make([]string, len(hints))
	for i, h := range hints {
		lines[i] = h.String()
	}
	return printLines(cmd.OutOrStdout(), lines)
}

func runInstall(cmd *cobra.Command, o *options, pkg *inst.Package) error {
	return pkg.Install(cmd.Context(), o.subsystems, o.root, o.mach.Tags())
}

func runUninstall(cmd *cobra.Command, o *options, pkg *inst.Package) error {
	return pkg.Uninstall(cmd.Context(), o.subsystems, o.root, o.mach.Tags())
}
