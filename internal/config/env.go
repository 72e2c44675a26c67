package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of seggy environment variables (SEGGY_PORT, ...).
const EnvPrefix = "SEGGY"

// envBindings maps config keys to the environment variables read for them.
// Unprefixed names are kept for deployments that predate the SEGGY_ prefix.
var envBindings = map[string][]string{
	"api_key":         {"SEGGY_API_KEY", "OPENROUTER_API_KEY"},
	"port":            {"SEGGY_PORT", "PORT"},
	"batch_size":      {"SEGGY_BATCH_SIZE"},
	"concurrency":     {"SEGGY_CONCURRENCY"},
	"proxy":           {"SEGGY_PROXY"},
	"log_format":      {"SEGGY_LOG_FORMAT"},
	"history":         {"SEGGY_HISTORY"},
	"history_dir":     {"SEGGY_HISTORY_DIR"},
	"request_timeout": {"SEGGY_REQUEST_TIMEOUT"},
}

// ApplyEnv overlays environment variables onto c.
func ApplyEnv(c *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return err
		}
	}

	if v.IsSet("api_key") {
		c.APIKey = v.GetString("api_key")
	}
	if v.IsSet("port") {
		c.Port = v.GetInt("port")
	}
	if v.IsSet("batch_size") {
		c.BatchSize = v.GetInt("batch_size")
	}
	if v.IsSet("concurrency") {
		c.Concurrency = v.GetInt("concurrency")
	}
	if v.IsSet("proxy") {
		c.ProxyAddress = v.GetString("proxy")
	}
	if v.IsSet("log_format") {
		c.LogFormat = v.GetString("log_format")
	}
	if v.IsSet("history") {
		c.SaveHistory = v.GetBool("history")
	}
	if v.IsSet("history_dir") {
		c.DBDir = v.GetString("history_dir")
	}
	if v.IsSet("request_timeout") {
		d, err := parseTimeout(v.GetString("request_timeout"))
		if err != nil {
			return err
		}
		c.RequestTimeout = d
	}
	return nil
}

// parseTimeout reads a duration such as "90s" or "10m". A bare integer is
// a number of seconds, as in the PORT-era deployment where 600 meant ten
// minutes.
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a duration", ErrInvalidTimeout, s)
	}
	return d, nil
}
