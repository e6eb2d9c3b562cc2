package sniping

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/pumpfun"
)

// scamKeywords is the pump-and-dump vocabulary that disqualifies a
// token on sight. Matched as substrings of the lowercased name and
// symbol.
var scamKeywords = []string{
	"scam", "rug", "fake", "honeypot", "honey pot", "ponzi",
	"presale", "pre-sale", "ico", "guaranteed", "100x", "1000x",
}

// Legitimate tokens keep symbols short, usually 2-6 characters.
const maxSymbolLength = 10

// SafetyFilter runs fast lexical checks on a token's name and symbol
// before any SOL is committed. No RPC round trips.
type SafetyFilter struct {
	logger *zap.Logger
}

func NewSafetyFilter(logger *zap.Logger) *SafetyFilter {
	return &SafetyFilter{logger: logger.Named("filter")}
}

// Evaluate reports whether the token looks tradeable and, when it does
// not, why it was rejected.
func (f *SafetyFilter) Evaluate(ev *pumpfun.TokenCreationEvent) (bool, string) {
	name := strings.ToLower(ev.Name)
	symbol := strings.ToLower(ev.Symbol)

	for _, keyword := range scamKeywords {
		if strings.Contains(name, keyword) || strings.Contains(symbol, keyword) {
			return false, fmt.Sprintf("name or symbol contains %q", keyword)
		}
	}

	if len(symbol) > maxSymbolLength {
		return false, fmt.Sprintf("symbol is unusually long (%d chars)", len(symbol))
	}

	// Mismatched first letters show up on lazy copycats. Yellow flag
	// only, legitimate tokens do this too.
	if len(symbol) >= 3 && firstRune(name) != firstRune(symbol) {
		f.logger.Debug("Token name and symbol first letters don't match",
			zap.String("name", ev.Name),
			zap.String("symbol", ev.Symbol))
	}

	return true, ""
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
