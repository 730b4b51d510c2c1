package ws

import (
	"testing"

	"github.com/artpar/mobilecli/internal/protocol"
)

func TestIsAllowedSpawnCommand(t *testing.T) {
	if !isAllowedSpawnCommand("claude") {
		t.Fatal("expected claude to be allowed")
	}
	if !isAllowedSpawnCommand("/usr/local/bin/bash") {
		t.Fatal("expected a full path to an allowed binary to be allowed")
	}
	if isAllowedSpawnCommand("rm") {
		t.Fatal("expected rm to be rejected")
	}
}

func TestIsShellSafeRejectsControlAndSubstitution(t *testing.T) {
	cases := []struct {
		in   string
		safe bool
	}{
		{"claude --resume", true},
		{"echo hi\n", false},
		{"echo\r\nhi", false},
		{"echo`whoami`", false},
		{"echo $(whoami)", false},
		{"plain-arg_123", true},
	}
	for _, c := range cases {
		if got := isShellSafe(c.in); got != c.safe {
			t.Errorf("isShellSafe(%q) = %v, want %v", c.in, got, c.safe)
		}
	}
}

func TestValidateSpawnRequestRejectsDisallowedCommand(t *testing.T) {
	err := validateSpawnRequest(protocol.SpawnSession{Command: "curl"})
	if err == nil {
		t.Fatal("expected an error for a disallowed command")
	}
}

func TestValidateSpawnRequestRejectsUnsafeArgs(t *testing.T) {
	err := validateSpawnRequest(protocol.SpawnSession{Command: "bash", Args: []string{"-c", "echo $(id)"}})
	if err == nil {
		t.Fatal("expected an error for an unsafe argument")
	}
}

func TestValidateSpawnRequestRejectsRelativeWorkingDir(t *testing.T) {
	err := validateSpawnRequest(protocol.SpawnSession{Command: "bash", WorkingDir: "relative/path"})
	if err == nil {
		t.Fatal("expected an error for a non-absolute working directory")
	}
}

func TestValidateSpawnRequestRejectsMissingWorkingDir(t *testing.T) {
	err := validateSpawnRequest(protocol.SpawnSession{Command: "bash", WorkingDir: "/definitely/does/not/exist/mobilecli"})
	if err == nil {
		t.Fatal("expected an error for a nonexistent working directory")
	}
}

func TestValidateSpawnRequestAllowsBareCommand(t *testing.T) {
	if err := validateSpawnRequest(protocol.SpawnSession{Command: "claude", Args: []string{"--resume"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
