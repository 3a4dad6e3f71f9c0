package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func writeUnit(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func validTree(t *testing.T) string {
	root := t.TempDir()
	writeUnit(t, root, "commands/General/ping.yaml", "name: ping\ncooldown: 3\n")
	writeUnit(t, root, "slash/General/ping.yaml", "data:\n  name: ping\n  description: latency\n")
	writeUnit(t, root, "events/Client/ready.yaml", "name: ready\nonce: true\n")
	return root
}

func TestValidateOK(t *testing.T) {
	var out bytes.Buffer
	if code := validate(&out, validTree(t), 2, zerolog.Nop()); code != 0 {
		t.Fatalf("exit code %d\n%s", code, out.String())
	}
	for _, want := range []string{"command loader completed! 1 loaded, 0 failed", "slash loader completed!", "event loader completed!"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestValidateFailsOnBadUnit(t *testing.T) {
	root := validTree(t)
	writeUnit(t, root, "commands/General/broken.yaml", "description: no name\n")

	var out bytes.Buffer
	if code := validate(&out, root, 2, zerolog.Nop()); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(out.String(), "1 loaded, 1 failed") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestValidateMissingTree(t *testing.T) {
	var out bytes.Buffer
	if code := validate(&out, filepath.Join(t.TempDir(), "nope"), 2, zerolog.Nop()); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
}

func TestValidateShippedUnits(t *testing.T) {
	var out bytes.Buffer
	if code := validate(&out, filepath.Join("..", "..", "units"), 2, zerolog.Nop()); code != 0 {
		t.Fatalf("exit code %d\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "event loader completed! 4 loaded, 0 failed") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunParsesFlags(t *testing.T) {
	var out bytes.Buffer
	if code := run([]string{"-units", validTree(t), "-workers", "1"}, &out); code != 0 {
		t.Fatalf("exit code %d\n%s", code, out.String())
	}
	if code := run([]string{"-nope"}, &out); code != 2 {
		t.Fatalf("exit code %d for a bad flag, want 2", code)
	}
}
