package inst

import (
	"errors"
	"io"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Option configures a Package.
type Option func(*Package) error

// WithFS reads the package and writes the target through fsys.
// The default is the host filesystem.
func WithFS(fsys afero.Fs) Option {
	return func(p *Package) error {
		if fsys == nil {
			return errors.New("filesystem must not be nil")
		}
		p.fs = fsys
		return nil
	}
}

// WithLogger sets the logger for progress and warnings.
// The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(p *Package) error {
		if log == nil {
			return errors.New("logger must not be nil")
		}
		p.log = log
		return nil
	}
}

// WithHookOutput prints preop, postop, exitop and removeop commands to w.
func WithHookOutput(w io.Writer) Option {
	return func(p *Package) error {
		p.hooks = w
		return nil
	}
}

// WithPrivileged overrides whether ownership changes are attempted.
// By default they are attempted only when running as root.
func WithPrivileged(privileged bool) Option {
	return func(p *Package) error {
		p.privileged = &privileged
		return nil
	}
}

// WithDecoderMaxMemory limits the memory a zstd payload decoder may use.
// Zero means no limit.
func WithDecoderMaxMemory(limit uint64) Option {
	return func(p *Package) error {
		p.maxDecoderMemory = limit
		return nil
	}
}
