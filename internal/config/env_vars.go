package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	logLevelVar   = "LOG_LEVEL"
	ConfigFileVar = "SESSION_CONFIG_FILE"
)

// source resolves a setting from the environment first, then the config file.
type source struct {
	file fileValues
}

func (s source) get(name, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	if value, ok := s.file[name]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (s source) getInt(name string, defaultValue int) int {
	v, err := strconv.Atoi(s.get(name, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func (s source) getBool(name string, defaultValue bool) bool {
	v, err := strconv.ParseBool(s.get(name, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func (s source) getDuration(name string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(s.get(name, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func (s source) getList(name string, defaultValue []string) []string {
	raw := s.get(name, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type EnvVars struct {
	src source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.src.get(appNameVar, "SplitMates Session")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.src.get(envVar, "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	return e.src.get(logLevelVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
