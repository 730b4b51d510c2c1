package protocol

import (
	"encoding/json"
	"testing"
)

func TestPeekType(t *testing.T) {
	raw := []byte(`{"type":"send_input","session_id":"abc","text":"ls\n"}`)
	typ, err := PeekType(raw)
	if err != nil {
		t.Fatalf("PeekType: %v", err)
	}
	if typ != TypeSendInput {
		t.Errorf("type = %q, want %q", typ, TypeSendInput)
	}
}

func TestPeekTypeInvalidJSON(t *testing.T) {
	if _, err := PeekType([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestHelloRoundTrip(t *testing.T) {
	h := Hello{Type: TypeHello, AuthToken: "tok-123", ClientVersion: "1.2.0"}
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	typ, err := PeekType(data)
	if err != nil || typ != TypeHello {
		t.Fatalf("PeekType = %q, %v", typ, err)
	}

	var decoded Hello
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != h {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, h)
	}
}

func TestWelcomeRoundTrip(t *testing.T) {
	w := Welcome{
		Type:          TypeWelcome,
		ServerVersion: "0.3.0",
		Authenticated: true,
		DeviceID:      "dev-1",
		DeviceName:    "pixel",
	}
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Welcome
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != w {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, w)
	}
}

func TestToolApprovalRoundTrip(t *testing.T) {
	for _, resp := range []string{ApprovalYes, ApprovalYesAlways, ApprovalNo} {
		a := ToolApproval{Type: TypeToolApproval, SessionID: "sess-1", Response: resp}
		data, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var decoded ToolApproval
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if decoded != a {
			t.Errorf("round trip mismatch for %q: got %+v, want %+v", resp, decoded, a)
		}
	}
}

func TestOperationErrorShapes(t *testing.T) {
	cases := []struct {
		name string
		err  *FileSystemError
	}{
		{"path_traversal", PathTraversal("/etc/passwd")},
		{"file_too_large", FileTooLarge(200, 100)},
		{"rate_limited", RateLimited(250)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			msg := OperationError{Type: TypeOperationError, RequestID: "req-1", Error: c.err}
			data, err := json.Marshal(msg)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}

			var raw map[string]json.RawMessage
			if err := json.Unmarshal(data, &raw); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}

			var decodedErr FileSystemError
			if err := json.Unmarshal(raw["error"], &decodedErr); err != nil {
				t.Fatalf("Unmarshal error field: %v", err)
			}
			if decodedErr.Code != c.err.Code {
				t.Errorf("code = %q, want %q", decodedErr.Code, c.err.Code)
			}
		})
	}
}

func TestFileChangedRenamedRoundTrips(t *testing.T) {
	// ChangeRenamed exists for wire compatibility only; confirm it still
	// serializes correctly even though internal/fs never emits it.
	fc := FileChanged{Type: TypeFileChanged, Path: "/tmp/x", ChangeType: ChangeRenamed}
	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded FileChanged
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ChangeType != ChangeRenamed {
		t.Errorf("change_type = %q, want %q", decoded.ChangeType, ChangeRenamed)
	}
}

func TestListDirectoryDefaults(t *testing.T) {
	ld := ListDirectory{Type: TypeListDirectory, RequestID: "r1", Path: "/home/u"}
	data, err := json.Marshal(ld)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded ListDirectory
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.SortField != "" || decoded.SortOrder != "" {
		t.Errorf("expected zero-value sort field/order when omitted, got %q/%q", decoded.SortField, decoded.SortOrder)
	}
}
