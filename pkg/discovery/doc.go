// Package discovery finds and announces FIDO MAC services with mDNS/DNS-SD.
//
// A MAC advertises the _fidomac._tcp service. Instance names are free-form
// labels of at most 63 bytes. TXT records describe how to reach the
// WebSocket endpoint:
//
//	path  WebSocket path (default "/")
//	tls   "1" or "true" when the endpoint expects wss://
//	ver   service version (optional)
//
// Browsing aggregates the per-interface answers for one instance into a
// single Service whose Addresses list every address seen so far.
package discovery
