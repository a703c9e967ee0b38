// Package ipfs resolves content references to gateway URLs and pins files
// through the Pinata API.
package ipfs

import "strings"

// Scheme is the prefix the factory stores in front of content identifiers.
const Scheme = "ipfs://"

// DefaultGateway is the public gateway the marketplace serves images from.
const DefaultGateway = "https://amber-static-chameleon-729.mypinata.cloud/ipfs/"

// Resolver maps content references to fetchable gateway URLs.
type Resolver struct {
	gateway string
}

// NewResolver creates a Resolver for the given gateway base URL.
// An empty base falls back to DefaultGateway.
func NewResolver(gateway string) *Resolver {
	if gateway == "" {
		gateway = DefaultGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return &Resolver{gateway: gateway}
}

// URL strips a leading ipfs:// once and prefixes the gateway base. A
// reference without the scheme is appended unmodified. Empty input yields "".
func (r *Resolver) URL(ref string) string {
	if strings.TrimSpace(ref) == "" {
		return ""
	}
	return r.gateway + strings.TrimPrefix(ref, Scheme)
}

// URI builds the on-chain reference for a content identifier.
func URI(cid string) string {
	if cid == "" {
		return ""
	}
	return Scheme + cid
}
