package peers

// PeerSet is an ordered list of peers with unique addresses.
type PeerSet struct {
	Peers []*Peer
}

// NewPeerSet builds a PeerSet, dropping later peers that repeat an address.
func NewPeerSet(peers []*Peer) *PeerSet {
	seen := make(map[string]bool, len(peers))
	ps := &PeerSet{Peers: make([]*Peer, 0, len(peers))}
	for _, p := range peers {
		if seen[p.NetAddr] {
			continue
		}
		seen[p.NetAddr] = true
		ps.Peers = append(ps.Peers, p)
	}
	return ps
}

// Len ...
func (ps *PeerSet) Len() int {
	return len(ps.Peers)
}

// Addresses returns the address of every peer, in order.
func (ps *PeerSet) Addresses() []string {
	addrs := make([]string, len(ps.Peers))
	for i, p := range ps.Peers {
		addrs[i] = p.NetAddr
	}
	return addrs
}

// Exclude returns a PeerSet without the peers matching pubKeyHex or netAddr.
func (ps *PeerSet) Exclude(pubKeyHex, netAddr string) *PeerSet {
	key := cleanseKey(pubKeyHex)
	others := make([]*Peer, 0, len(ps.Peers))
	for _, p := range ps.Peers {
		if p.PubKeyHex == key || p.NetAddr == netAddr {
			continue
		}
		others = append(others, p)
	}
	return &PeerSet{Peers: others}
}
