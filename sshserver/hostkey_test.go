package sshserver

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestLoadHostKeyPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "host_key")
	first, err := LoadHostKey(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected mode %v", info.Mode().Perm())
	}
	second, err := LoadHostKey(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if ssh.FingerprintSHA256(first.PublicKey()) != ssh.FingerprintSHA256(second.PublicKey()) {
		t.Fatalf("host key changed across loads")
	}
	if first.PublicKey().Type() != ssh.KeyAlgoED25519 {
		t.Fatalf("unexpected key type %s", first.PublicKey().Type())
	}
}

func TestLoadHostKeyEphemeral(t *testing.T) {
	a, err := LoadHostKey("")
	if err != nil {
		t.Fatalf("ephemeral: %v", err)
	}
	b, err := LoadHostKey("")
	if err != nil {
		t.Fatalf("ephemeral: %v", err)
	}
	if ssh.FingerprintSHA256(a.PublicKey()) == ssh.FingerprintSHA256(b.PublicKey()) {
		t.Fatalf("expected distinct ephemeral keys")
	}
}

func TestLoadHostKeyRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_key")
	if err := os.WriteFile(path, []byte("not a key"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadHostKey(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
