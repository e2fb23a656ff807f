// Package node assembles a reactor node.
//
// A node is one reactor wired with five components:
//
//  heartbeat    paces the node and announces Beat
//  deploybuffer accepts, verifies and buffers client deploys
//  storage      persists deploys in memory or in Badger
//  gossiper     pushes accepted deploys to peers on every Beat
//  apiserver    answers the HTTP service and keeps the status counters
//
// Components never call each other. Requests are events carrying a Responder,
// and announcements reach their subscribers through the routes declared in
// Routes, converted to each subscriber's event type on the way.
//
// The HTTP service (package service) is the only ingress. Clients post
// deploys to /deploy, peers post gossip to /gossip, and both become events
// submitted to the reactor.
package node
