package market

import (
	"fmt"
	"strconv"
	"strings"

	"tradepost.gg/internal/sim/items"
)

// Marker sign format, one field per line:
//
//	Selling
//	<amount> x <item>
//	For
//	<amount> x <item>
//
// Amounts are integers clamped to [1, min(64, stackLimit)]; item tokens
// resolve against the catalog case-insensitively.

const offerFooter = "For"

// signAmountCap bounds sign-entered amounts regardless of catalog limits.
const signAmountCap = 64

// ParseError is a structured sign parse failure naming the offending line
// (0-based).
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sign line %d: %s", e.Line+1, e.Reason)
}

// Offer is a parsed trade: what the shop gives and what it asks.
type Offer struct {
	Offered items.Amount
	Asked   items.Amount
}

// IsOfferSign reports whether the lines are even shaped like an offer. Only
// then is a parse attempted; other signs are none of our business.
func IsOfferSign(lines [4]string) bool {
	return strings.EqualFold(strings.TrimSpace(lines[0]), "Selling") &&
		strings.EqualFold(strings.TrimSpace(lines[2]), offerFooter)
}

// ParseOffer decodes the marker sign text. findNotable, when non-nil, lets
// the offer capture a modifier-bearing variant of the named kind held in the
// backing container (an enchanted item advertised by its plain name).
func ParseOffer(lines [4]string, cat *items.Catalog, findNotable func(kind string) (items.Amount, bool)) (Offer, error) {
	if !strings.EqualFold(strings.TrimSpace(lines[0]), "Selling") {
		return Offer{}, &ParseError{Line: 0, Reason: `expected "Selling"`}
	}
	if !strings.EqualFold(strings.TrimSpace(lines[2]), offerFooter) {
		return Offer{}, &ParseError{Line: 2, Reason: `expected "For"`}
	}
	offered, err := parseAmountItem(lines[1], 1, cat, findNotable)
	if err != nil {
		return Offer{}, err
	}
	asked, err := parseAmountItem(lines[3], 3, cat, findNotable)
	if err != nil {
		return Offer{}, err
	}
	return Offer{Offered: offered, Asked: asked}, nil
}

func parseAmountItem(line string, lineNo int, cat *items.Catalog, findNotable func(string) (items.Amount, bool)) (items.Amount, error) {
	parts := strings.SplitN(line, "x", 2)
	if len(parts) != 2 {
		return items.Amount{}, &ParseError{Line: lineNo, Reason: "expected <amount> x <item>"}
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return items.Amount{}, &ParseError{Line: lineNo, Reason: "bad amount"}
	}
	def, ok := cat.Lookup(parts[1])
	if !ok {
		return items.Amount{}, &ParseError{Line: lineNo, Reason: "unknown item " + strings.TrimSpace(parts[1])}
	}
	limit := cat.StackLimit(def.ID)
	if limit > signAmountCap {
		limit = signAmountCap
	}
	if n < 1 || n > limit {
		return items.Amount{}, &ParseError{Line: lineNo, Reason: fmt.Sprintf("amount must be 1-%d", limit)}
	}
	if findNotable != nil {
		if variant, ok := findNotable(def.ID); ok {
			return variant.WithCount(n), nil
		}
	}
	return items.New(def.ID, n), nil
}
