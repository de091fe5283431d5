package statement

import (
	"regexp"
	"strconv"
	"strings"
)

// Row kinds produced by the line parser.
const (
	KindTransaction = "transaction"
	KindPayment     = "payment"
	KindCharge      = "charge"
	KindBalance     = "balance"
)

// Row is one recognised line of an Itaú Uruguay card statement. Dates are
// DD/MM/YY as printed; amounts use a dot as decimal separator.
type Row struct {
	Date         string
	Code         string
	Description  string
	Installments string
	AmountUYU    float64
	AmountUSD    *float64
	Kind         string
}

const amountPattern = `-?\d+(?:\.\d{3})*,\d{2}`

var (
	amountRe      = regexp.MustCompile(amountPattern)
	rowDateRe     = regexp.MustCompile(`(\d{2})\s+(\d{2})\s+(\d{2})`)
	txnPrefixRe   = regexp.MustCompile(`^\s*(\d{2})\s+(\d{2})\s+(\d{2})\s+(?:(\d{4})\s+)?`)
	amountStartRe = regexp.MustCompile(`\s{4,}` + amountPattern)
	installmentRe = regexp.MustCompile(`\d+/\d+`)
)

// ParseLines runs the line parser over extracted statement text.
func ParseLines(text string) []Row {
	var rows []Row
	for _, line := range strings.Split(text, "\n") {
		if row, ok := ParseLine(line); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// ParseLine recognises balance, payment and insurance lines and dated
// card transactions. Anything else is ignored.
func ParseLine(line string) (Row, bool) {
	line = strings.TrimRight(line, " \t\r")
	if len(line) < 20 {
		return Row{}, false
	}

	switch {
	case strings.Contains(line, "SALDO DEL ESTADO DE CUENTA ANTERIOR"):
		return lastPair(line, Row{Description: "SALDO ANTERIOR", Kind: KindBalance})
	case strings.Contains(line, "PAGOS"):
		m := rowDateRe.FindStringSubmatch(line)
		if m == nil {
			return Row{}, false
		}
		return lastPair(line, Row{Date: m[1] + "/" + m[2] + "/" + m[3], Description: "PAGOS", Kind: KindPayment})
	case strings.Contains(line, "SEGURO DE VIDA SOBRE SALDO"):
		amounts := amountRe.FindAllString(line, -1)
		if len(amounts) < 2 {
			return Row{}, false
		}
		usd := parseAmount(amounts[1])
		return Row{Description: "SEGURO DE VIDA", AmountUYU: parseAmount(amounts[0]), AmountUSD: &usd, Kind: KindCharge}, true
	case strings.Contains(line, "SALDO CONTADO"):
		return lastPair(line, Row{Description: "SALDO FINAL", Kind: KindBalance})
	}

	m := txnPrefixRe.FindStringSubmatchIndex(line)
	if m == nil {
		return Row{}, false
	}
	rest := line[m[1]:]
	loc := amountStartRe.FindStringIndex(rest)
	if loc == nil || loc[0] == 0 {
		return Row{}, false
	}
	desc := strings.TrimSpace(rest[:loc[0]])
	amounts := amountRe.FindAllString(rest[loc[0]:], -1)

	row := Row{
		Date:        line[m[2]:m[3]] + "/" + line[m[4]:m[5]] + "/" + line[m[6]:m[7]],
		Description: desc,
		Kind:        KindTransaction,
	}
	if m[8] >= 0 {
		row.Code = line[m[8]:m[9]]
	}
	if inst := installmentRe.FindString(desc); inst != "" {
		row.Installments = inst
		row.Description = strings.Join(strings.Fields(strings.Replace(desc, inst, " ", 1)), " ")
	}
	row.AmountUYU = parseAmount(amounts[len(amounts)-1])
	if len(amounts) > 1 {
		usd := parseAmount(amounts[len(amounts)-2])
		row.AmountUSD = &usd
	}
	return row, true
}

// lastPair fills the peso and dollar columns from the two rightmost amounts.
func lastPair(line string, row Row) (Row, bool) {
	amounts := amountRe.FindAllString(line, -1)
	if len(amounts) < 2 {
		return Row{}, false
	}
	usd := parseAmount(amounts[len(amounts)-1])
	row.AmountUYU = parseAmount(amounts[len(amounts)-2])
	row.AmountUSD = &usd
	return row, true
}

// parseAmount reads "1.234,56" notation. Inputs are pre-matched by amountRe.
func parseAmount(s string) float64 {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
