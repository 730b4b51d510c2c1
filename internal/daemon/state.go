package daemon

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"
)

// PersistedSession is one entry of the single-array sessions.json
// snapshot, written on every session lifecycle change so a restarted
// daemon can report the sessions that existed before it was killed.
type PersistedSession struct {
	SessionID   string    `json:"session_id"`
	Name        string    `json:"name"`
	Command     string    `json:"command"`
	ProjectPath string    `json:"project_path"`
	StartedAt   time.Time `json:"started_at"`
}

// SaveSessions overwrites sessions.json with the given snapshot.
func SaveSessions(sessions []PersistedSession) error {
	if err := EnsureStateDir(); err != nil {
		return err
	}
	if sessions == nil {
		sessions = []PersistedSession{}
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(GetSessionsPath(), data, 0600)
}

// LoadSessions reads the persisted session snapshot, returning an empty
// slice (not an error) if the file does not exist yet.
func LoadSessions() ([]PersistedSession, error) {
	data, err := os.ReadFile(GetSessionsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var sessions []PersistedSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeviceConfig is the daemon's persisted identity, used to build QR
// pairing URLs and to recognize a returning mobile device.
type DeviceConfig struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	AuthToken  string `json:"auth_token,omitempty"`
	// PushTokens is keyed by the Expo push token itself (registration is
	// idempotent: the same physical device re-registering overwrites its
	// own entry instead of accumulating duplicates), value is the client's
	// reported platform ("ios"/"android").
	PushTokens map[string]string `json:"push_tokens,omitempty"`
}

// RegisterPushToken records token, overwriting any existing platform
// value for it.
func (c *DeviceConfig) RegisterPushToken(token, platform string) {
	if c.PushTokens == nil {
		c.PushTokens = make(map[string]string)
	}
	c.PushTokens[token] = platform
}

// UnregisterPushToken removes token, reporting whether it was present.
func (c *DeviceConfig) UnregisterPushToken(token string) bool {
	if _, ok := c.PushTokens[token]; !ok {
		return false
	}
	delete(c.PushTokens, token)
	return true
}

// LoadOrCreateConfig reads config.json, generating and persisting a
// fresh device identity the first time the daemon runs.
func LoadOrCreateConfig() (*DeviceConfig, error) {
	data, err := os.ReadFile(GetConfigPath())
	if err == nil {
		var cfg DeviceConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		if cfg.PushTokens == nil {
			cfg.PushTokens = make(map[string]string)
		}
		return &cfg, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	hostname, _ := os.Hostname()
	cfg := &DeviceConfig{
		DeviceID:   randomHex(16),
		DeviceName: hostname,
		PushTokens: make(map[string]string),
	}
	if err := SaveConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig persists cfg to config.json.
func SaveConfig(cfg *DeviceConfig) error {
	if err := EnsureStateDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(GetConfigPath(), data, 0600)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(buf)
}
