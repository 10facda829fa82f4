package boletin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Keywords that flag a norm as spending or contracting even when no
// peso figure could be extracted from its text.
var spendingKeywords = []string{
	"licitación", "contratación", "adjudica", "compra", "adquisición",
	"provisión", "suministro", "servicio", "obra", "presupuesto",
	"precio", "monto", "pago", "costo", "gasto",
}

// Matches Argentine-formatted peso amounts such as "$ 1.234.567,89".
var amountRe = regexp.MustCompile(`\$\s?([\d]{1,3}(?:\.[\d]{3})*(?:,[\d]{1,2})?)`)

// Amounts under this value are treated as noise (article numbers,
// dates rendered near a peso sign, etc.).
const minAmount = 1000

// ExtractAmounts returns every plausible peso amount found in text,
// normalized to a float.
func ExtractAmounts(text string) []float64 {
	if text == "" {
		return nil
	}
	var amounts []float64
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[1], ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if val > minAmount {
			amounts = append(amounts, val)
		}
	}
	return amounts
}

// IsSpendingRelated reports whether the text mentions any contracting
// or expenditure keyword.
func IsSpendingRelated(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range spendingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Classify sets the notice category and amount fields from its text.
// Expenditure wins when either an amount above the noise floor or a
// spending keyword is present.
func Classify(n *Notice) {
	amounts := ExtractAmounts(n.RawText)
	if len(amounts) > 0 {
		maxVal := amounts[0]
		for _, v := range amounts[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		n.Amount = maxVal
		n.AmountDisplay = FormatPesos(maxVal)
		n.Category = CategoryExpenditure
		return
	}
	if IsSpendingRelated(n.RawText + " " + n.Title) {
		n.Category = CategoryExpenditure
		return
	}
	n.Category = CategoryNorm
}

// FormatPesos renders an amount with thousands separators in the local
// convention, e.g. 1234567.89 -> "$1.234.568".
func FormatPesos(v float64) string {
	whole := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}
