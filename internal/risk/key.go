package risk

import (
	"strings"

	"kite-riskdesk/internal/fields"
)

// Key namespaces. The prefixes differ so a token key can never equal a
// symbol key.
const (
	tokenKeyPrefix  = "token:"
	symbolKeyPrefix = "sym:"
)

// Identity holds the fields that can identify an instrument.
type Identity struct {
	Token    string
	Symbol   string
	Exchange string
}

// HasAny reports whether the identity can produce a meaningful key.
func (id Identity) HasAny() bool {
	return hasToken(id.Token) || strings.TrimSpace(id.Symbol) != ""
}

// NormalizeInstrumentKey returns the join key for an instrument. A usable
// instrument token wins; otherwise the key is built from exchange and
// symbol, case preserved, with missing parts left empty.
func NormalizeInstrumentKey(id Identity) string {
	if token := strings.TrimSpace(id.Token); hasToken(token) {
		return tokenKeyPrefix + token
	}
	return symbolKeyPrefix + strings.TrimSpace(id.Exchange) + "|" + strings.TrimSpace(id.Symbol)
}

// hasToken treats blank and zero tokens as absent; Kite sends 0 when it
// has no token for a record.
func hasToken(token string) bool {
	token = strings.TrimSpace(token)
	return token != "" && token != "0"
}

// identityFrom reads an identity out of rec with the given chains.
func identityFrom(rec fields.Record, token, symbol, exchange fields.Chain) Identity {
	return Identity{
		Token:    token.StringOr(rec, ""),
		Symbol:   symbol.StringOr(rec, ""),
		Exchange: exchange.StringOr(rec, ""),
	}
}

// IdentityFromRecord extracts a position's identity using the position
// aliases.
func IdentityFromRecord(rec fields.Record, a Aliases) Identity {
	a = a.WithDefaults()
	return identityFrom(rec, a.Token, a.Symbol, a.Exchange)
}
