package journal

import (
	"database/sql"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"trade-journal-go/internal/models"
)

const exportTimeLayout = "02/01/2006 15:04:05.000000"

// WriteCSV writes trades in the canonical column layout. ParseReport accepts
// that layout, so an exported report can be imported again. Missing values
// come out as empty cells.
func WriteCSV(w io.Writer, trades []models.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(requiredColumns); err != nil {
		return err
	}
	for _, t := range trades {
		record := []string{
			t.Symbol,
			t.Direction,
			t.CloseTime.Format(exportTimeLayout),
			decimalCell(t.NetProfit),
			decimalCell(t.Balance),
			lotsCell(t.Lots),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func decimalCell(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func lotsCell(f sql.NullFloat64) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', 2, 64)
}
