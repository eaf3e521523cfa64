package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type SiteConfig struct {
	Title         string `mapstructure:"title"`
	StripPrefix   string `mapstructure:"strip_prefix"`
	Production    bool   `mapstructure:"production"`
	HideSnakeCase bool   `mapstructure:"hide_snake_case"`
	OutputDir     string `mapstructure:"output_dir"`
}

// VariantConfig points at the model for one library variant. Key selects an
// entry when Model is a multi-variant document.
type VariantConfig struct {
	Model    string `mapstructure:"model"`
	Key      string `mapstructure:"key"`
	Language string `mapstructure:"language"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	CacheSize int    `mapstructure:"cache_size"`
}

type PlaygroundConfig struct {
	Compiler    string   `mapstructure:"compiler"`
	Args        []string `mapstructure:"args"`
	Workdir     string   `mapstructure:"workdir"`
	ArtifactDir string   `mapstructure:"artifact_dir"`
	Modules     []string `mapstructure:"modules"`
	Prelude     string   `mapstructure:"prelude"`
	Output      string   `mapstructure:"output"`
}

type Config struct {
	Site       SiteConfig               `mapstructure:"site"`
	Variants   map[string]VariantConfig `mapstructure:"variants"`
	Server     ServerConfig             `mapstructure:"server"`
	Playground PlaygroundConfig         `mapstructure:"playground"`
}

// VariantNames returns the configured variant names in sorted order.
func (c *Config) VariantNames() []string {
	names := make([]string, 0, len(c.Variants))
	for name := range c.Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) Variant(name string) (VariantConfig, error) {
	v, ok := c.Variants[name]
	if !ok {
		return VariantConfig{}, fmt.Errorf("unknown variant %q (configured: %s)", name, strings.Join(c.VariantNames(), ", "))
	}
	return v, nil
}

// cacheBase returns the base cache directory for odocsite.
// Checks XDG_CACHE_HOME, then ~/.cache, then /tmp/odocsite as fallback.
func cacheBase() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "odocsite")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "odocsite")
	}
	return filepath.Join(os.TempDir(), "odocsite")
}

// DBPath returns the path to the DuckDB symbol index.
func DBPath() string {
	return filepath.Join(cacheBase(), "index.db")
}

// CASDir returns the path to the content-addressable storage directory.
func CASDir() string {
	return filepath.Join(cacheBase(), "cas")
}

// LogPath returns the path to the server's log file.
func LogPath() string {
	return filepath.Join(cacheBase(), "serve.log")
}

func InitializeViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		viper.AddConfigPath(filepath.Join(xdg, "odocsite"))
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "odocsite"))
	}

	viper.SetDefault("site.title", "Documentation")
	viper.SetDefault("site.strip_prefix", "Tablecloth.")
	viper.SetDefault("site.production", false)
	viper.SetDefault("site.hide_snake_case", false)
	viper.SetDefault("site.output_dir", "public")
	viper.SetDefault("server.addr", "127.0.0.1:8000")
	viper.SetDefault("server.cache_size", 8)
	viper.SetDefault("playground.compiler", "js_of_ocaml")
	viper.SetDefault("playground.artifact_dir", "_build/default")
	viper.SetDefault("playground.output", "public/playground.js")

	viper.SetEnvPrefix("ODOCSITE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// stringToVariantHookFunc lets a variant be written as just its model path:
// `native = "docs/native.json"`.
func stringToVariantHookFunc() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(VariantConfig{}) {
			return data, nil
		}
		if f.Kind() == reflect.String {
			return VariantConfig{Model: data.(string)}, nil
		}
		return data, nil
	}
}

func Load() (*Config, error) {
	if err := InitializeViper(); err != nil {
		return nil, err
	}

	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToVariantHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for name, v := range config.Variants {
		if v.Model == "" {
			return nil, fmt.Errorf("variant %s: no model path", name)
		}
		v.Model = expandHome(v.Model)
		config.Variants[name] = v
	}
	config.Playground.Prelude = expandHome(config.Playground.Prelude)

	return &config, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path[2:])
	}
	return path
}
