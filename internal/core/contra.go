package core

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// AggregateContraIndicators counts the codes in a raw indicator field.
// Codes may be separated by commas, LF or CRLF in any mix; blanks are
// dropped. The result is sorted by code.
func AggregateContraIndicators(raw string) []ContraIndicatorCount {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	tokens := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' })

	codes := lo.FilterMap(tokens, func(tok string, _ int) (string, bool) {
		tok = strings.TrimSpace(tok)
		return tok, tok != ""
	})
	if len(codes) == 0 {
		return nil
	}

	counts := lo.MapToSlice(lo.CountValues(codes), func(code string, n int) ContraIndicatorCount {
		return ContraIndicatorCount{Code: code, Count: n}
	})
	slices.SortFunc(counts, func(a, b ContraIndicatorCount) int {
		return strings.Compare(a.Code, b.Code)
	})
	return counts
}
