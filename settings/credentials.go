// Package settings stores langsync provider credentials.
//
// Credentials live in the XDG data directory:
//
//	$XDG_DATA_HOME/langsync/auth.json  (default: ~/.local/share/langsync/)
//
// The file is a JSON object keyed by provider ID and is written with 0600
// permissions.
//
// API keys are looked up in this order:
//  1. --api-key flag
//  2. LANGSYNC_API_KEY
//  3. the provider's own variable (OPENAI_API_KEY, GROQ_API_KEY)
//  4. auth.json
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	dataDirName = "langsync"
	fileName    = "auth.json"

	// EnvAPIKey overrides the stored key for every provider.
	EnvAPIKey = "LANGSYNC_API_KEY"
)

// providerEnv maps provider IDs to their conventional key variables.
var providerEnv = map[string]string{
	"openai":        "OPENAI_API_KEY",
	"groq":          "GROQ_API_KEY",
	"custom-openai": "OPENAI_API_KEY",
}

// Credential is one stored provider entry.
type Credential struct {
	Key string `json:"key"`
	// BaseURL is kept for custom-openai endpoints.
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds credentials keyed by provider ID.
type Store map[string]*Credential

// Providers returns the stored provider IDs in sorted order.
func (s Store) Providers() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

// DataDir returns the langsync data directory, honouring $XDG_DATA_HOME.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json path for display, or "" if unknown.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the store. A missing or unreadable file yields an empty store.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the store with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// SetAPIKey stores key (and an optional base URL) for a provider.
func SetAPIKey(providerID, key, baseURL string) error {
	store := Load()
	store[providerID] = &Credential{Key: key, BaseURL: baseURL}
	return Save(store)
}

// Get returns the stored credential for a provider, or nil.
func Get(providerID string) *Credential {
	return Load()[providerID]
}

// Remove deletes a provider's credential. Removing a missing entry is a
// no-op.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil
	}
	delete(store, providerID)
	return Save(store)
}

// RemoveAll deletes auth.json.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

// APIKey resolves the key for a provider. flagValue wins when set. source
// names where the key came from ("flag", the variable name, or "auth.json")
// and is empty when nothing was found.
func APIKey(providerID, flagValue string) (key, source string) {
	if flagValue != "" {
		return flagValue, "flag"
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		return v, EnvAPIKey
	}
	if env, ok := providerEnv[providerID]; ok {
		if v := os.Getenv(env); v != "" {
			return v, env
		}
	}
	if c := Get(providerID); c != nil && c.Key != "" {
		return c.Key, fileName
	}
	return "", ""
}

// BaseURL returns the stored base URL for a provider, or "".
func BaseURL(providerID string) string {
	if c := Get(providerID); c != nil {
		return c.BaseURL
	}
	return ""
}

// MaskKey hides all but the ends of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
