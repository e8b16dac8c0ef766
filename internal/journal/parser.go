package journal

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"trade-journal-go/internal/models"
)

// ErrInvalidReport marks activity exports that cannot be imported at all:
// unreadable CSV, missing columns, unparseable close times. Malformed numeric
// cells are not part of this; they degrade to their missing state row by row.
var ErrInvalidReport = errors.New("invalid activity report")

// columnNames maps the broker's export headers to canonical names. Columns
// already carrying a canonical name pass through untouched, so re-importing
// an exported report works too.
var columnNames = map[string]string{
	"Kód":                "symbol",
	"Nyitási irány":      "direction",
	"Zárási idő (UTC+0)": "close_time",
	"Nettó €":            "net_profit",
	"Egyenleg €":         "balance",
	"Záró mennyiség":     "lots",
}

var requiredColumns = []string{"symbol", "direction", "close_time", "net_profit", "balance", "lots"}

// closeTimeLayout covers both "28/04/2025 14:35:12" and
// "28/04/2025 14:35:12.862000": time.Parse consumes an optional fractional
// second after the seconds field even when the layout omits it.
const closeTimeLayout = "02/01/2006 15:04:05"

var lotsPattern = regexp.MustCompile(`\d+\.\d+`)

// ParseReport reads a broker activity export and returns its trades in file
// order. A missing required column or a close time that does not parse
// abandons the whole batch with an error wrapping ErrInvalidReport.
func ParseReport(r io.Reader) ([]models.Trade, error) {
	reader := csv.NewReader(r)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidReport)
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if canonical, ok := columnNames[name]; ok {
			name = canonical
		}
		index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidReport, col)
		}
	}

	trades := make([]models.Trade, 0, len(records)-1)
	for i, record := range records[1:] {
		closeTime, err := time.Parse(closeTimeLayout, strings.TrimSpace(record[index["close_time"]]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad close time %q", ErrInvalidReport, i+2, record[index["close_time"]])
		}

		trade := models.Trade{
			Symbol:    strings.TrimSpace(record[index["symbol"]]),
			Direction: strings.ToLower(strings.TrimSpace(record[index["direction"]])),
			CloseTime: closeTime,
			NetProfit: parseDecimal(record[index["net_profit"]]),
			Balance:   parseDecimal(record[index["balance"]]),
			Lots:      parseLots(record[index["lots"]]),
		}
		trade.Profitable = trade.NetProfit.Valid && trade.NetProfit.Decimal.IsPositive()
		trades = append(trades, trade)
	}
	return trades, nil
}

func parseDecimal(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// parseLots pulls the first decimal number out of cells like "Closed 0.50".
func parseLots(s string) sql.NullFloat64 {
	match := lotsPattern.FindString(s)
	if match == "" {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
