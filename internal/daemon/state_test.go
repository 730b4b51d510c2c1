package daemon

import "testing"

func TestDeviceConfigRegisterPushTokenIsIdempotent(t *testing.T) {
	cfg := &DeviceConfig{}
	cfg.RegisterPushToken("expo-token-1", "ios")
	cfg.RegisterPushToken("expo-token-1", "ios")
	if len(cfg.PushTokens) != 1 {
		t.Fatalf("expected one token after duplicate registration, got %d", len(cfg.PushTokens))
	}
	if cfg.PushTokens["expo-token-1"] != "ios" {
		t.Fatalf("expected platform ios, got %q", cfg.PushTokens["expo-token-1"])
	}
}

func TestDeviceConfigRegisterPushTokenOverwritesPlatform(t *testing.T) {
	cfg := &DeviceConfig{}
	cfg.RegisterPushToken("expo-token-1", "ios")
	cfg.RegisterPushToken("expo-token-1", "android")
	if cfg.PushTokens["expo-token-1"] != "android" {
		t.Fatalf("expected platform to be overwritten to android, got %q", cfg.PushTokens["expo-token-1"])
	}
}

func TestDeviceConfigUnregisterPushToken(t *testing.T) {
	cfg := &DeviceConfig{}
	cfg.RegisterPushToken("expo-token-1", "ios")

	if !cfg.UnregisterPushToken("expo-token-1") {
		t.Fatal("expected UnregisterPushToken to report the token was present")
	}
	if _, ok := cfg.PushTokens["expo-token-1"]; ok {
		t.Fatal("expected token to be removed")
	}
	if cfg.UnregisterPushToken("expo-token-1") {
		t.Fatal("expected a second unregister of the same token to report false")
	}
}

func TestDeviceConfigUnregisterUnknownTokenReportsFalse(t *testing.T) {
	cfg := &DeviceConfig{PushTokens: map[string]string{"other": "ios"}}
	if cfg.UnregisterPushToken("missing") {
		t.Fatal("expected unregistering an unknown token to report false")
	}
}
