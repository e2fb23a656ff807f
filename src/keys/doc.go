// Package keys implements the public key cryptography used to sign and verify
// deploys.
//
// A deploy is signed by the account that submits it. Keys are secp256k1
// key-pairs, the curve used by Bitcoin and Ethereum, so existing account keys
// can sign deploys. Signatures are deterministic (RFC 6979): signing the same
// hash with the same key always gives the same bytes, which keeps recorded
// traces reproducible.
package keys
