package keys

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mosaicnetworks/reactor/src/rng"
)

func TestGenerateKeyIsSeeded(t *testing.T) {
	k1, err := GenerateKey(rng.NewSeeded(7))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	k2, _ := GenerateKey(rng.NewSeeded(7))
	k3, _ := GenerateKey(rng.NewSeeded(8))

	if !bytes.Equal(DumpPrivateKey(k1), DumpPrivateKey(k2)) {
		t.Fatalf("same seed produced different keys")
	}
	if bytes.Equal(DumpPrivateKey(k1), DumpPrivateKey(k3)) {
		t.Fatalf("different seeds produced the same key")
	}
}

func TestParsePrivateKey(t *testing.T) {
	key, _ := GenerateKey(rng.NewSeeded(1))

	parsed, err := ParsePrivateKey(DumpPrivateKey(key))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if PrivateKeyHex(parsed) != PrivateKeyHex(key) {
		t.Fatalf("keys do not match")
	}

	if _, err := ParsePrivateKey(make([]byte, PrivateKeySize)); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("zero key should be rejected, got %v", err)
	}
	if _, err := ParsePrivateKey([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("short key should be rejected, got %v", err)
	}
}

func TestSignVerify(t *testing.T) {
	key, _ := GenerateKey(rng.NewSeeded(1))
	other, _ := GenerateKey(rng.NewSeeded(2))

	hash := SHA256([]byte("J'aime mieux forger mon ame que la meubler"))

	sig, err := Sign(key, hash)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	again, _ := Sign(key, hash)
	if sig != again {
		t.Fatalf("signatures should be deterministic")
	}

	ok, err := Verify(PublicKeyHex(key.PubKey()), hash, sig)
	if err != nil || !ok {
		t.Fatalf("valid signature rejected: %v", err)
	}

	ok, err = Verify(PublicKeyHex(other.PubKey()), hash, sig)
	if err != nil || ok {
		t.Fatalf("signature verified under the wrong key (err=%v)", err)
	}

	if _, err := Verify(PublicKeyHex(key.PubKey()), hash, "0Xnothex"); err == nil {
		t.Fatalf("malformed signature should error")
	}
}

func TestSimpleKeyfile(t *testing.T) {
	dir := t.TempDir()
	keyfile := NewSimpleKeyfile(filepath.Join(dir, "keys", "priv_key"))

	if key, err := keyfile.ReadKey(); err == nil || key != nil {
		t.Fatalf("ReadKey should fail before WriteKey")
	}

	key, _ := GenerateKey(rng.NewSeeded(3))
	if err := keyfile.WriteKey(key); err != nil {
		t.Fatalf("err: %v", err)
	}

	read, err := keyfile.ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if PrivateKeyHex(read) != PrivateKeyHex(key) {
		t.Fatalf("keys do not match")
	}
}

func TestFilePermissions(t *testing.T) {
	dir := t.TempDir()
	key, _ := GenerateKey(rng.NewSeeded(4))
	rawKey := []byte(PrivateKeyHex(key))

	badKeyPath := filepath.Join(dir, "priv_key_bad")
	for _, fm := range []os.FileMode{0777, 0766, 0744, 0677, 0644, 0444} {
		os.WriteFile(badKeyPath, rawKey, fm)
		os.Chmod(badKeyPath, fm)

		if _, err := NewSimpleKeyfile(badKeyPath).ReadKey(); err == nil {
			t.Fatalf("%o || key file should return permissions error", fm)
		}
	}

	goodKeyPath := filepath.Join(dir, "priv_key_good")
	for _, fm := range []os.FileMode{0700, 0600, 0400} {
		os.WriteFile(goodKeyPath, rawKey, fm)
		os.Chmod(goodKeyPath, fm)

		if _, err := NewSimpleKeyfile(goodKeyPath).ReadKey(); err != nil {
			t.Fatalf("%o || key file should not return error. Got %v", fm, err)
		}
	}
}
