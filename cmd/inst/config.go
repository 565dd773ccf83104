package main

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const envPrefix = "INST"

// newViper returns a viper instance reading INST_* environment variables
// and config files from fsys.
func newViper(fsys afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fsys)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return v
}

// applyConfig fills flags the user did not set from the environment and
// the optional config file.
func applyConfig(v *viper.Viper, cmd *cobra.Command, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "config" || !v.IsSet(f.Name) {
			return
		}
		if isList(f) {
			for _, s := range v.GetStringSlice(f.Name) {
				if err := f.Value.Set(s); err != nil {
					errs = append(errs, fmt.Errorf("--%s from config: %w", f.Name, err))
				}
			}
			return
		}
		val := fmt.Sprintf("%v", v.Get(f.Name))
		if val == "" {
			return
		}
		if err := f.Value.Set(val); err != nil {
			errs = append(errs, fmt.Errorf("--%s from config: %w", f.Name, err))
		}
	})
	return multierr.Combine(errs...)
}

func isList(f *pflag.Flag) bool {
	switch f.Value.Type() {
	case "stringSlice", "stringArray", "tag=value":
		return true
	default:
		return false
	}
}
