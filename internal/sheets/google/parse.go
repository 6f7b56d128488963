package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fairshare/internal/core"
	ports "fairshare/internal/sheets"
)

// parseRows converts a values matrix (as returned by the Sheets API) into
// rows. The header and any row with a bad date or amount are skipped.
func parseRows(values [][]interface{}) []ports.Row {
	var out []ports.Row
	for _, raw := range values {
		cols := toStrings(raw)
		if len(cols) < 8 {
			continue
		}
		date, err := time.Parse(ports.DateLayout, cols[0])
		if err != nil {
			continue
		}
		cents, ok := parseAmountToCents(cols[7])
		if !ok {
			continue
		}
		out = append(out, ports.Row{
			Date:          date,
			TransactionID: cols[1],
			Title:         cols[2],
			Category:      core.Category(cols[3]),
			Currency:      cols[4],
			From:          core.UserID(cols[5]),
			To:            core.UserID(cols[6]),
			Amount:        core.Cents(cents),
		})
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// parseAmountToCents accepts "12.34", "12,34" and plain numbers as the
// Sheets API renders them.
func parseAmountToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if cents, err := core.ParseDecimalToCents(s); err == nil {
		return cents, true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return core.MoneyFromFloat(f).Cents, true
}
