package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileValues holds settings from a YAML config file, keyed by the same names
// as the environment variables they stand in for:
//
//	SESSION_PLATFORM: web
//	REDIS_ADDR: cache.internal:6379
//	OIDC_ISSUER: https://auth.example.com
type fileValues map[string]string

func readFile(path string) (fileValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	values := make(fileValues, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			continue
		case []any:
			list := ""
			for i, item := range t {
				if i > 0 {
					list += ","
				}
				list += fmt.Sprint(item)
			}
			values[k] = list
		default:
			values[k] = fmt.Sprint(t)
		}
	}
	return values, nil
}
