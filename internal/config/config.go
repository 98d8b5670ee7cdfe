package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the warden reads at startup. All fields are
// read-only after FromEnv returns; the moderation pipeline never mutates it.
type Config struct {
	LogLevel string
	HTTPPort string

	PostgresDSN   string
	ClickHouseDSN string

	OneBotURL         string
	OneBotAccessToken string
	CallTimeout       time.Duration

	AdminTokenHash string
	AuthCacheTTL   time.Duration

	// MonitoredGroups are the groups whose messages are scanned for
	// identifiers to blacklist.
	MonitoredGroups map[int64]struct{}
	// ExemptGroups are groups whose join requests are not moderated at all.
	ExemptGroups map[int64]struct{}
	// ExclusionWords suppress identifier extraction for a message when any
	// of them appears as a substring (order numbers, ticket IDs, ...).
	ExclusionWords []string
	// MinLevel is the minimum account level required to join when the
	// requester is not blacklisted.
	MinLevel int
}

// FromEnv reads configuration from the process environment.
func FromEnv() *Config {
	return &Config{
		LogLevel:          envOrDefault("WARDEN_LOG_LEVEL", "info"),
		HTTPPort:          envOrDefault("WARDEN_HTTP_PORT", "8080"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		ClickHouseDSN:     os.Getenv("CLICKHOUSE_DSN"),
		OneBotURL:         os.Getenv("ONEBOT_WS_URL"),
		OneBotAccessToken: os.Getenv("ONEBOT_ACCESS_TOKEN"),
		CallTimeout:       time.Duration(envOrDefaultInt("ONEBOT_CALL_TIMEOUT_MS", 15000)) * time.Millisecond,
		AdminTokenHash:    os.Getenv("WARDEN_ADMIN_TOKEN_BCRYPT"),
		AuthCacheTTL:      time.Duration(envOrDefaultInt("WARDEN_AUTH_CACHE_TTL_S", 30)) * time.Second,
		MonitoredGroups:   envGroupSet("WARDEN_MONITORED_GROUPS"),
		ExemptGroups:      envGroupSet("WARDEN_EXEMPT_GROUPS"),
		ExclusionWords:    envList("WARDEN_EXCLUSION_WORDS"),
		MinLevel:          envOrDefaultInt("WARDEN_MIN_LEVEL", 0),
	}
}

// Monitored reports whether messages in the group are scanned.
func (c *Config) Monitored(groupID int64) bool {
	_, ok := c.MonitoredGroups[groupID]
	return ok
}

// Exempt reports whether join requests for the group bypass moderation.
func (c *Config) Exempt(groupID int64) bool {
	_, ok := c.ExemptGroups[groupID]
	return ok
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// envList parses a comma-separated list, trimming whitespace and dropping
// empty items.
func envList(key string) []string {
	return splitList(os.Getenv(key))
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envGroupSet parses a comma-separated list of numeric group IDs into a set.
// Items that are not valid integers are skipped.
func envGroupSet(key string) map[int64]struct{} {
	return parseGroupSet(os.Getenv(key))
}

func parseGroupSet(v string) map[int64]struct{} {
	set := make(map[int64]struct{})
	for _, item := range splitList(v) {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}
