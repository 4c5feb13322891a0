package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = ".pbgen"
	envPrefix  = "PBGEN"
)

// loadConfig layers the configuration: flag defaults, then the config file,
// then PBGEN_* environment variables (a .env file in the working directory
// included), then flags set on the command line.
func (a *App) loadConfig(configFile string) (*viper.Viper, error) {
	if err := a.loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(a.Fs)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		path, err := homedir.Expand(configFile)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		a.logger.Debug("loaded config", "path", v.ConfigFileUsed())
	}
	return v, nil
}

// loadDotEnv sets the variables of the file that are not already set in the
// environment.
func (a *App) loadDotEnv(path string) error {
	f, err := a.Fs.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for key, value := range vars {
		if _, ok := os.LookupEnv(key); !ok {
			os.Setenv(key, value)
		}
	}
	return nil
}

// bindFlags makes every flag of cmd a config key: --output-directory is
// read from output_directory in the config file and PBGEN_OUTPUT_DIRECTORY.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = v.BindPFlag(configKey(f.Name), f)
		}
	})
	return err
}

func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// path reads a config key holding a path, expanding a leading ~.
func (a *App) path(key string) (string, error) {
	p, err := homedir.Expand(a.config.GetString(key))
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return p, nil
}

func (a *App) importPaths() ([]string, error) {
	var paths []string
	for _, p := range a.config.GetStringSlice("import_path") {
		expanded, err := homedir.Expand(p)
		if err != nil {
			return nil, fmt.Errorf("import_path: %w", err)
		}
		paths = append(paths, expanded)
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	return paths, nil
}
