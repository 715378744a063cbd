package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mediarequest/backend/internal/common/constants"
)

var (
	ErrMissingRequiredEnv = errors.New("missing required environment variable")
	ErrInvalidTokenSecret = errors.New("token secret must be at least 32 bytes")
	ErrInvalidEnv         = errors.New("invalid environment variable")
)

type AuthConfig struct {
	HTTPPort           string
	StoreDriver        string
	DatabaseURL        string
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	PasswordHashCost   int
	RequestTimeout     time.Duration

	// TrustedProxies lists the peers whose X-Real-IP / X-Forwarded-For
	// headers are believed. Empty means clients are keyed by RemoteAddr.
	TrustedProxies []netip.Prefix

	CircuitBreakerThreshold int32
	CircuitBreakerTimeout   time.Duration
	CircuitBreakerReset     time.Duration

	AdminEmail       string
	AdminPassword    string
	AdminDisplayName string
}

// SharedSecrets reports whether the operator configured the same value for
// both signing secrets.
func (c AuthConfig) SharedSecrets() bool {
	return c.AccessTokenSecret == c.RefreshTokenSecret
}

func (c AuthConfig) AdminBootstrapEnabled() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}

// LoadEnvFile loads variables from path into the process environment without
// overriding ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = constants.DefaultEnvFile
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func LoadAuthConfig() (AuthConfig, error) {
	if err := LoadEnvFile(os.Getenv("ENV_FILE")); err != nil {
		return AuthConfig{}, err
	}

	accessSecret, err := mustEnv("ACCESS_TOKEN_SECRET")
	if err != nil {
		return AuthConfig{}, err
	}
	if err := validateTokenSecret("ACCESS_TOKEN_SECRET", accessSecret); err != nil {
		return AuthConfig{}, err
	}

	refreshSecret, err := mustEnv("REFRESH_TOKEN_SECRET")
	if err != nil {
		return AuthConfig{}, err
	}
	if err := validateTokenSecret("REFRESH_TOKEN_SECRET", refreshSecret); err != nil {
		return AuthConfig{}, err
	}

	storeDriver := getEnv("STORE_DRIVER", constants.StoreDriverPostgres)
	if storeDriver != constants.StoreDriverPostgres && storeDriver != constants.StoreDriverMemory {
		return AuthConfig{}, fmt.Errorf("%w: STORE_DRIVER=%q", ErrInvalidEnv, storeDriver)
	}

	var databaseURL string
	if storeDriver == constants.StoreDriverPostgres {
		databaseURL, err = mustEnv("DATABASE_URL")
		if err != nil {
			return AuthConfig{}, err
		}
	}

	accessTTL, err := getDurationEnv("ACCESS_TOKEN_TTL", constants.DefaultAccessTokenTTL)
	if err != nil {
		return AuthConfig{}, err
	}
	refreshTTL, err := getDurationEnv("REFRESH_TOKEN_TTL", constants.DefaultRefreshTokenTTL)
	if err != nil {
		return AuthConfig{}, err
	}
	requestTimeout, err := getDurationEnv("AUTH_REQUEST_TIMEOUT", constants.DefaultAuthRequestTimeout)
	if err != nil {
		return AuthConfig{}, err
	}
	hashCost, err := getIntEnv("PASSWORD_HASH_COST", constants.DefaultPasswordHashCost)
	if err != nil {
		return AuthConfig{}, err
	}
	cbThreshold, err := getIntEnv("CIRCUIT_BREAKER_THRESHOLD", constants.DefaultCircuitBreakerThreshold)
	if err != nil {
		return AuthConfig{}, err
	}
	cbTimeout, err := getDurationEnv("CIRCUIT_BREAKER_TIMEOUT", constants.DefaultCircuitBreakerTimeout)
	if err != nil {
		return AuthConfig{}, err
	}
	cbReset, err := getDurationEnv("CIRCUIT_BREAKER_RESET", constants.DefaultCircuitBreakerReset)
	if err != nil {
		return AuthConfig{}, err
	}

	trustedProxies, err := getPrefixesEnv("TRUSTED_PROXIES")
	if err != nil {
		return AuthConfig{}, err
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if (adminEmail == "") != (adminPassword == "") {
		return AuthConfig{}, fmt.Errorf("%w: ADMIN_EMAIL and ADMIN_PASSWORD must be set together", ErrInvalidEnv)
	}

	return AuthConfig{
		HTTPPort:                getEnv("AUTH_HTTP_PORT", constants.DefaultAuthHTTPPort),
		StoreDriver:             storeDriver,
		DatabaseURL:             databaseURL,
		AccessTokenSecret:       accessSecret,
		RefreshTokenSecret:      refreshSecret,
		AccessTokenTTL:          accessTTL,
		RefreshTokenTTL:         refreshTTL,
		PasswordHashCost:        hashCost,
		RequestTimeout:          requestTimeout,
		TrustedProxies:          trustedProxies,
		CircuitBreakerThreshold: int32(cbThreshold),
		CircuitBreakerTimeout:   cbTimeout,
		CircuitBreakerReset:     cbReset,
		AdminEmail:              adminEmail,
		AdminPassword:           adminPassword,
		AdminDisplayName:        getEnv("ADMIN_DISPLAY_NAME", "Administrator"),
	}, nil
}

func validateTokenSecret(key, secret string) error {
	if len(secret) < constants.TokenSecretMinLength {
		return fmt.Errorf("%w: %s has %d bytes", ErrInvalidTokenSecret, key, len(secret))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, v)
	}
	return d, nil
}

func getIntEnv(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, v)
	}
	return i, nil
}

// getPrefixesEnv parses a comma-separated list of CIDRs or bare addresses.
func getPrefixesEnv(key string) ([]netip.Prefix, error) {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}

	var prefixes []netip.Prefix
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			prefix, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, item)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, item)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
