package peers

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ugorji/go/codec"
)

const jsonPeerSetPath = "peers.json"

// JSONPeerSet is used to provide peer persistence on disk in the form of a JSON
// file. This allows human operators to manipulate the file.
type JSONPeerSet struct {
	l    sync.Mutex
	path string
	jh   *codec.JsonHandle
}

// NewJSONPeerSet creates a new JSONPeerSet with reference to a base directory
// where the JSON file resides.
func NewJSONPeerSet(base string) *JSONPeerSet {
	jh := new(codec.JsonHandle)
	jh.Indent = 2

	return &JSONPeerSet{
		path: filepath.Join(base, jsonPeerSetPath),
		jh:   jh,
	}
}

// Path returns the location of the JSON file.
func (j *JSONPeerSet) Path() string {
	return j.path
}

// PeerSet parses the underlying JSON file and returns the corresponding
// PeerSet. A missing file is reported with an error satisfying
// errors.Is(err, os.ErrNotExist).
func (j *JSONPeerSet) PeerSet() (*PeerSet, error) {
	j.l.Lock()
	defer j.l.Unlock()

	// Read the file
	buf, err := os.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	// Check for no peers
	if len(buf) == 0 {
		return NewPeerSet(nil), nil
	}

	// Decode the peers
	var peers []*Peer
	if err := codec.NewDecoderBytes(buf, j.jh).Decode(&peers); err != nil {
		return nil, err
	}

	for _, p := range peers {
		p.PubKeyHex = cleanseKey(p.PubKeyHex)
	}

	return NewPeerSet(peers), nil
}

// Write persists peers to the JSON file.
func (j *JSONPeerSet) Write(peers []*Peer) error {
	j.l.Lock()
	defer j.l.Unlock()

	var buf []byte
	if err := codec.NewEncoderBytes(&buf, j.jh).Encode(peers); err != nil {
		return err
	}

	// Write out as JSON
	return os.WriteFile(j.path, buf, 0644)
}
