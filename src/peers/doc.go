// Package peers defines the peers a node gossips deploys to and loads them
// from the data directory.
//
// A peer is identified by its public key and reached at the address of its
// HTTP service. Peers may be given on the command line; otherwise the node
// looks for a peers.json file in its data directory:
//
//  [
//    {"NetAddr": "10.0.0.1:8000", "PubKeyHex": "0X02AB...", "Moniker": "alice"},
//    {"NetAddr": "10.0.0.2:8000", "PubKeyHex": "0X03CD...", "Moniker": "bob"}
//  ]
//
// A node finding itself in the file, by public key or address, leaves itself
// out.
package peers
