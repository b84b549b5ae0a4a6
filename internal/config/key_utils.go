package config

import "strings"

// normalizeAPIKey strips formatting noise that commonly appears in env-var values.
func normalizeAPIKey(raw string) string {
	key := strings.TrimSpace(raw)
	if key == "" {
		return ""
	}

	key = strings.Trim(key, `"'`)
	key = strings.TrimSpace(key)
	if len(key) >= len("bearer ") && strings.EqualFold(key[:len("bearer ")], "bearer ") {
		key = strings.TrimSpace(key[len("bearer "):])
	}

	key = strings.ReplaceAll(key, `\r`, "")
	key = strings.ReplaceAll(key, `\n`, "")

	// Keep only visible ASCII bytes so the key is safe in headers and query strings.
	filtered := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		if b := key[i]; b >= 33 && b <= 126 {
			filtered = append(filtered, b)
		}
	}

	return string(filtered)
}

// isPlaceholderKey reports values copied verbatim from example .env files
func isPlaceholderKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range []string{"your-", "your_", "changeme", "replace-me", "<", "xxxx"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
