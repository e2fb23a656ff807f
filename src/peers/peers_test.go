package peers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mosaicnetworks/reactor/src/keys"
	"github.com/mosaicnetworks/reactor/src/rng"
)

func TestJSONPeerSet(t *testing.T) {
	dir := t.TempDir()

	// Create the store
	store := NewJSONPeerSet(dir)

	// Try a read, should get nothing
	if _, err := store.PeerSet(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}

	r := rng.NewSeeded(4)
	peers := []*Peer{}
	for i := 0; i < 3; i++ {
		key, err := keys.GenerateKey(r)
		if err != nil {
			t.Fatal(err)
		}
		peers = append(peers, NewPeer(
			keys.PublicKeyHex(key.PubKey()),
			fmt.Sprintf("addr%d", i),
			fmt.Sprintf("peer%d", i),
		))
	}

	if err := store.Write(peers); err != nil {
		t.Fatalf("err: %v", err)
	}

	// Try a read, should find 3 peers
	peerSet, err := store.PeerSet()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !reflect.DeepEqual(peers, peerSet.Peers) {
		t.Fatalf("peers do not match: %v", peerSet.Peers)
	}

	for _, p := range peerSet.Peers {
		if _, err := p.PubKeyBytes(); err != nil {
			t.Fatalf("bad public key %s: %v", p.PubKeyHex, err)
		}
	}
}

func TestReadHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	file := `[
  {"NetAddr": "10.0.0.1:8000", "PubKeyHex": "0x02ab"},
  {"NetAddr": "10.0.0.2:8000", "PubKeyHex": "03cd", "Moniker": "bob"},
  {"NetAddr": "10.0.0.1:8000", "PubKeyHex": "0x04ef"}
]`
	if err := os.WriteFile(filepath.Join(dir, "peers.json"), []byte(file), 0644); err != nil {
		t.Fatal(err)
	}

	peerSet, err := NewJSONPeerSet(dir).PeerSet()
	if err != nil {
		t.Fatal(err)
	}

	if peerSet.Len() != 2 {
		t.Fatalf("repeated address should be dropped, got %d peers", peerSet.Len())
	}
	if peerSet.Peers[0].PubKeyHex != "0X02AB" || peerSet.Peers[1].PubKeyHex != "0X03CD" {
		t.Fatalf("keys not cleansed: %v, %v", peerSet.Peers[0].PubKeyHex, peerSet.Peers[1].PubKeyHex)
	}
}

func TestExclude(t *testing.T) {
	ps := NewPeerSet([]*Peer{
		NewPeer("0xaa", "a:1", ""),
		NewPeer("0xbb", "b:1", ""),
		NewPeer("0xcc", "c:1", ""),
	})

	if got := ps.Exclude("0XAA", "").Addresses(); !reflect.DeepEqual(got, []string{"b:1", "c:1"}) {
		t.Fatalf("exclude by key: %v", got)
	}
	if got := ps.Exclude("", "c:1").Addresses(); !reflect.DeepEqual(got, []string{"a:1", "b:1"}) {
		t.Fatalf("exclude by address: %v", got)
	}
	if ps.Len() != 3 {
		t.Fatalf("Exclude should not modify the original set")
	}
}
