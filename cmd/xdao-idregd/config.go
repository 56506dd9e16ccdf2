package main

import (
	"flag"
	"fmt"

	"github.com/spf13/viper"
)

// config is the daemon configuration. Values come, lowest precedence first,
// from defaults, the YAML file named by -config, IDREGD_* environment
// variables and command line flags.
type config struct {
	Listen          string `mapstructure:"listen"`
	Network         string `mapstructure:"network"`
	Contract        string `mapstructure:"contract"`
	OverwritePolicy string `mapstructure:"overwrite_policy"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
	Backend         string `mapstructure:"backend"`
	StoreConfig     string `mapstructure:"store_config"`
	ServeKV         bool   `mapstructure:"serve_kv"`
}

var defaults = map[string]any{
	"listen":           "127.0.0.1:7788",
	"network":          "xdao-idreg-local",
	"contract":         "",
	"overwrite_policy": "any",
	"log_level":        "info",
	"log_format":       "text",
	"backend":          "bolt",
	"store_config":     "",
	"serve_kv":         false,
}

// flagKeys maps daemon flag names to config keys.
var flagKeys = map[string]string{
	"listen":           "listen",
	"network":          "network",
	"contract":         "contract",
	"overwrite-policy": "overwrite_policy",
	"log-level":        "log_level",
	"log-format":       "log_format",
	"backend":          "backend",
	"store-config":     "store_config",
	"serve-kv":         "serve_kv",
}

func registerConfigFlags(fs *flag.FlagSet) *string {
	configPath := fs.String("config", "", "YAML config file")
	fs.String("listen", "", "listen address")
	fs.String("network", "", "network passphrase bound into every signature")
	fs.String("contract", "", "registry instance id (64 hex chars)")
	fs.String("overwrite-policy", "", "who may replace a record: any|owner-only")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-format", "", "log format: text|json")
	fs.String("backend", "", "storage backend name")
	fs.String("store-config", "", "storage config file (YAML or JSON); overrides -backend")
	fs.Bool("serve-kv", false, "also expose the raw key-value store over gRPC")
	return configPath
}

// loadConfig resolves the configuration after fs has been parsed.
func loadConfig(fs *flag.FlagSet, configPath string) (config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("IDREGD")
	v.AutomaticEnv()
	if configPath != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}
