// Package pumpfun watches the pump.fun program log stream for new token
// creations and turns raw log lines into structured events.
package pumpfun

import (
	"strings"

	"github.com/mr-tron/base58"
)

// Metadata sentinels used when logs carry a mint but no name or symbol.
const (
	UnknownName   = "Unknown Token"
	UnknownSymbol = "UNKNOWN"
)

// minMintLen is the shortest base58 string that can encode a 32-byte key.
const minMintLen = 32

// TokenCreationEvent is one detected token creation. Signature is the
// source transaction, carried for logging only.
type TokenCreationEvent struct {
	Mint      string
	Name      string
	Symbol    string
	Signature string
}

// Extract scans transaction log lines for the "mint:", "name:" and
// "symbol:" markers (case-sensitive) and builds a TokenCreationEvent.
// A mint candidate must be long enough and decode to a 32-byte key;
// invalid candidates are skipped and scanning continues. Without a valid
// mint anywhere in the lines there is no event. Name and symbol fall back
// to sentinels when their markers never appear, so a creation is not lost
// to incomplete logging.
func Extract(logs []string, signature string) (*TokenCreationEvent, bool) {
	var mint, name, symbol string
	var nameSeen, symbolSeen bool

	for _, line := range logs {
		if _, rest, found := strings.Cut(line, "mint:"); found {
			cand := strings.TrimSpace(rest)
			if len(cand) >= minMintLen {
				if !isMintAddress(cand) {
					continue
				}
				mint = cand
			}
		}

		if _, rest, found := strings.Cut(line, "name:"); found {
			name = strings.TrimSpace(rest)
			nameSeen = true
		}

		if _, rest, found := strings.Cut(line, "symbol:"); found {
			symbol = strings.TrimSpace(rest)
			symbolSeen = true
		}
	}

	if mint == "" {
		return nil, false
	}

	if !nameSeen {
		name = UnknownName
	}
	if !symbolSeen {
		symbol = UnknownSymbol
	}

	return &TokenCreationEvent{
		Mint:      mint,
		Name:      name,
		Symbol:    symbol,
		Signature: signature,
	}, true
}

// isMintAddress reports whether s decodes to a 32-byte public key.
func isMintAddress(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == 32
}

// hasCreateMarker reports whether any log line mentions a create
// instruction. The match is a plain case-sensitive substring check; the
// extractor behind it makes the real decision.
func hasCreateMarker(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, "create") {
			return true
		}
	}
	return false
}
