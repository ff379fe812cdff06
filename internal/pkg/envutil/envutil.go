package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/briefs-backend/internal/pkg/logger"
)

func String(key, def string, log *logger.Logger) string {
	val, ok := lookup(key)
	if !ok {
		debug(log, key, "Environment variable not found, using default", "default", def)
		return def
	}
	debug(log, key, "Environment variable found, using environment", "value", val)
	return val
}

// Secret is String without echoing the value into logs.
func Secret(key, def string, log *logger.Logger) string {
	val, ok := lookup(key)
	if !ok {
		return def
	}
	debug(log, key, "Environment variable found, using environment")
	return val
}

// List splits a comma-separated value, dropping empty entries.
func List(key string, def []string, log *logger.Logger) []string {
	raw, ok := lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	debug(log, key, "Environment variable found, using environment", "count", len(out))
	return out
}

func Float(key string, def float64, log *logger.Logger) float64 {
	raw, ok := lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		debug(log, key, "Environment variable could not be parsed as float, using default", "provided", raw, "default", def)
		return def
	}
	return f
}

func Int(key string, def int, log *logger.Logger) int {
	raw, ok := lookup(key)
	if !ok {
		debug(log, key, "Environment variable not found, using default", "default", def)
		return def
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		debug(log, key, "Environment variable could not be parsed as int, using default", "provided", raw, "default", def, "error", err)
		return def
	}
	return i
}

func Bool(key string, def bool, log *logger.Logger) bool {
	raw, ok := lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		debug(log, key, "Environment variable could not be parsed as bool, using default", "provided", raw, "default", def)
		return def
	}
}

// Duration accepts Go duration strings ("750ms", "5m") or a bare integer number of seconds.
func Duration(key string, def time.Duration, log *logger.Logger) time.Duration {
	raw, ok := lookup(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	debug(log, key, "Environment variable could not be parsed as duration, using default", "provided", raw, "default", def.String())
	return def
}

func lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return "", false
	}
	return val, true
}

func debug(log *logger.Logger, key, msg string, kv ...interface{}) {
	if log == nil {
		return
	}
	log.With("env_var", key).Debug(msg, kv...)
}
