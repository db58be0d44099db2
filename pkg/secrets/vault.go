// Package secrets loads environment variables from a HashiCorp Vault KV mount.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

// VaultConfig describes where catalog secrets live in Vault
type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	// Overwrite replaces variables that are already set in the environment
	Overwrite bool
}

// VaultResult reports how many variables were applied
type VaultResult struct {
	Enabled bool
	Path    string
	Loaded  int
	Skipped int
}

// ErrIncompleteConfig is returned when Vault is enabled without an address, token or path
var ErrIncompleteConfig = errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")

// VaultConfigFromEnv reads VAULT_* variables. Defaults: mount "secret", KV v2, 5s timeout.
func VaultConfigFromEnv() VaultConfig {
	cfg := VaultConfig{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     "secret",
		Path:      os.Getenv("VAULT_PATH"),
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
	}
	if mount := os.Getenv("VAULT_MOUNT"); mount != "" {
		cfg.Mount = mount
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		cfg.KVVersion = v
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_TIMEOUT_MS")); err == nil && v > 0 {
		cfg.Timeout = time.Duration(v) * time.Millisecond
	}
	return cfg
}

// ApplyVaultSecrets fetches the configured secret and exports each key as an
// environment variable. It is a no-op when Vault is disabled.
func ApplyVaultSecrets(ctx context.Context, cfg VaultConfig) (VaultResult, error) {
	result := VaultResult{Enabled: cfg.Enabled, Path: cfg.Path}
	if !cfg.Enabled {
		return result, nil
	}
	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		return result, ErrIncompleteConfig
	}

	data, err := fetch(ctx, cfg)
	if err != nil {
		return result, err
	}

	for key, value := range data {
		if !cfg.Overwrite && os.Getenv(key) != "" {
			result.Skipped++
			continue
		}
		if err := os.Setenv(key, stringify(value)); err != nil {
			return result, fmt.Errorf("failed to set %s: %w", key, err)
		}
		result.Loaded++
	}
	return result, nil
}

func fetch(ctx context.Context, cfg VaultConfig) (map[string]interface{}, error) {
	mount, path, err := secretLocation(cfg.Mount, cfg.Path)
	if err != nil {
		return nil, err
	}

	clientCfg := api.DefaultConfig()
	if clientCfg.Error != nil {
		return nil, fmt.Errorf("invalid vault client configuration: %w", clientCfg.Error)
	}
	clientCfg.Address = strings.TrimRight(cfg.Addr, "/")
	if cfg.Timeout > 0 {
		clientCfg.Timeout = cfg.Timeout
	}

	client, err := api.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	var secret *api.KVSecret
	if cfg.KVVersion == 1 {
		secret, err = client.KVv1(mount).Get(ctx, path)
	} else {
		secret, err = client.KVv2(mount).Get(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("vault fetch failed: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault response missing data for KV v%d", cfg.KVVersion)
	}
	return secret.Data, nil
}

func secretLocation(mount, path string) (string, string, error) {
	mount = strings.Trim(mount, "/")
	path = strings.Trim(path, "/")
	if mount == "" || path == "" {
		return "", "", errors.New("vault mount and path must be set")
	}
	return mount, path, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
