package spawn

import (
	"bytes"
	"runtime"
	"testing"
	"time"
)

func TestStartAndReadEcho(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	p, err := Start("/bin/sh", []string{"-c", "echo hello-pty"}, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Close()

	var out bytes.Buffer
	buf := make([]byte, 4096)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := p.Read(buf)
		out.Write(buf[:n])
		if err != nil || bytes.Contains(out.Bytes(), []byte("hello-pty")) {
			break
		}
	}

	if !bytes.Contains(out.Bytes(), []byte("hello-pty")) {
		t.Fatalf("expected output to contain %q, got %q", "hello-pty", out.String())
	}
}

func TestBridgeForwardsDataAndExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	p, err := Start("/bin/sh", []string{"-c", "cat"}, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	received := make(chan []byte, 16)
	exited := make(chan error, 1)
	b := NewBridge(p, func(d []byte) {
		cp := make([]byte, len(d))
		copy(cp, d)
		received <- cp
	}, func(err error) {
		exited <- err
	})
	b.Start()

	if err := b.Write([]byte("ping\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got []byte
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !bytes.Contains(got, []byte("ping")) {
		select {
		case d := <-received:
			got = append(got, d...)
		case <-time.After(100 * time.Millisecond):
		}
	}
	if !bytes.Contains(got, []byte("ping")) {
		t.Fatalf("expected bridge to forward echoed input, got %q", got)
	}

	b.Close()
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("expected onExit to fire after Close")
	}
}
