package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "http://mail-gatekeeper.me.sels.co.za"
	DefaultStatePath = "/home/node/clawd/memory/mail-gatekeeper-state.json"
	DefaultLimit     = 50
)

type Config struct {
	BaseURL       string        // Mail Gatekeeper API root
	StatePath     string        // local JSON state file
	TokenPaths    []string      // candidate token files, first non-empty wins
	Limit         int           // alerts requested per fetch
	Timeout       time.Duration // remote call timeout
	WatchInterval time.Duration // gatekeeper watch period

	WebhookURL   string // OpenClaw wake hook, empty disables it
	WebhookToken string
	SlackWebhook string

	DatabaseURL string // empty means use the JSON file
	StateName   string // row key when DatabaseURL is set

	LogDir   string
	LogLevel string

	Addr           string // state API bind address
	PublicAPIKeys  []string
	AdminAPIKeys   []string
	AllowedOrigins []string
	MarksPerMinute int  // 0 disables the mark rate limit
	TrustProxy     bool // take client IPs from X-Forwarded-For
}

func FromEnv() Config {
	baseURL := os.Getenv("GATEKEEPER_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	statePath := os.Getenv("GATEKEEPER_STATE_PATH")
	if statePath == "" {
		statePath = DefaultStatePath
	}

	tokenPaths := splitPathList(os.Getenv("GATEKEEPER_TOKEN_PATHS"))
	if len(tokenPaths) == 0 {
		tokenPaths = DefaultTokenPaths()
	}

	limit := DefaultLimit
	if v := os.Getenv("GATEKEEPER_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = clamp(n, 1, 200)
		}
	}

	timeout := 20 * time.Second
	if v := os.Getenv("GATEKEEPER_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}
	}

	interval := 5 * time.Minute
	if v := os.Getenv("GATEKEEPER_WATCH_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}

	stateName := os.Getenv("STATE_NAME")
	if stateName == "" {
		stateName = "default"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	marksPerMin := 60
	if v := os.Getenv("API_MARKS_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			marksPerMin = n
		}
	}

	return Config{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		StatePath:      statePath,
		TokenPaths:     tokenPaths,
		Limit:          limit,
		Timeout:        timeout,
		WatchInterval:  interval,
		WebhookURL:     strings.TrimSpace(os.Getenv("GATEKEEPER_WEBHOOK_URL")),
		WebhookToken:   strings.TrimSpace(os.Getenv("GATEKEEPER_WEBHOOK_TOKEN")),
		SlackWebhook:   strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL")),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StateName:      stateName,
		LogDir:         logDir,
		LogLevel:       logLevel,
		Addr:           addr,
		PublicAPIKeys:  splitCSV(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:   splitCSV(os.Getenv("ADMIN_API_KEYS")),
		AllowedOrigins: splitCSV(os.Getenv("ALLOWED_ORIGINS")),
		MarksPerMinute: marksPerMin,
		TrustProxy:     parseBool(os.Getenv("API_TRUST_PROXY")),
	}
}

// DefaultTokenPaths are searched when GATEKEEPER_TOKEN_PATHS is unset.
func DefaultTokenPaths() []string {
	paths := []string{"/home/node/clawd/.mail-gatekeeper-token"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".mail-gatekeeper-token"))
	}
	return paths
}

func splitPathList(v string) []string {
	var out []string
	for _, p := range filepath.SplitList(v) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitCSV(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
