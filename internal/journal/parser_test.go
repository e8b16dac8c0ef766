package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const sampleCSV = `Kód,Nyitási irány,Zárási idő (UTC+0),Nettó €,Egyenleg €,Záró mennyiség
EURUSD,Buy,28/04/2025 14:35:12.862000,100.50,10100.50,Closed 0.50
DAX,SELL,29/04/2025 09:15:00.123000,-50.25,10050.25,Closed 1.00`

func TestParseReport(t *testing.T) {
	trades, err := ParseReport(strings.NewReader(sampleCSV))

	assert.NoError(t, err)
	assert.Len(t, trades, 2)

	first := trades[0]
	assert.Equal(t, "EURUSD", first.Symbol)
	assert.Equal(t, "buy", first.Direction)
	assert.Equal(t, time.Date(2025, time.April, 28, 14, 35, 12, 862000000, time.UTC), first.CloseTime)
	assert.True(t, first.NetProfit.Valid)
	assert.Equal(t, "100.50", first.NetProfit.Decimal.StringFixed(2))
	assert.True(t, first.Balance.Valid)
	assert.Equal(t, "10100.50", first.Balance.Decimal.StringFixed(2))
	assert.True(t, first.Lots.Valid)
	assert.Equal(t, 0.50, first.Lots.Float64)
	assert.True(t, first.Profitable)

	second := trades[1]
	assert.Equal(t, "sell", second.Direction)
	assert.False(t, second.Profitable)
	assert.Equal(t, 1.00, second.Lots.Float64)
}

func TestParseReportAcceptsCanonicalHeaders(t *testing.T) {
	// Exported reports carry canonical column names and may drop the
	// fractional seconds.
	input := `symbol,direction,close_time,net_profit,balance,lots
GOLD,sell,02/05/2025 16:45:10,12.30,10112.80,0.75`

	trades, err := ParseReport(strings.NewReader(input))

	assert.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, "GOLD", trades[0].Symbol)
	assert.Equal(t, time.Date(2025, time.May, 2, 16, 45, 10, 0, time.UTC), trades[0].CloseTime)
	assert.Equal(t, 0.75, trades[0].Lots.Float64)
}

func TestParseReportStripsByteOrderMark(t *testing.T) {
	trades, err := ParseReport(strings.NewReader("\ufeff" + sampleCSV))

	assert.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestParseReportRejects(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{
			name:  "empty file",
			input: "",
		},
		{
			name: "missing lots column",
			input: `Kód,Nyitási irány,Zárási idő (UTC+0),Nettó €,Egyenleg €
EURUSD,Buy,28/04/2025 14:35:12.862000,100.50,10100.50`,
		},
		{
			name: "unparseable close time",
			input: `Kód,Nyitási irány,Zárási idő (UTC+0),Nettó €,Egyenleg €,Záró mennyiség
EURUSD,Buy,not a date,100.50,10100.50,Closed 0.50`,
		},
		{
			name:  "ragged row",
			input: sampleCSV + "\nGOLD,Buy,30/04/2025 10:00:00.000000,1.00,10101.50,Closed 0.10,extra",
		},
		{
			name:  "broken quoting",
			input: "\"Kód",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trades, err := ParseReport(strings.NewReader(tc.input))

			assert.ErrorIs(t, err, ErrInvalidReport)
			assert.Nil(t, trades)
		})
	}
}

func TestParseReportDegradesBadCellsToMissing(t *testing.T) {
	input := `Kód,Nyitási irány,Zárási idő (UTC+0),Nettó €,Egyenleg €,Záró mennyiség
EURUSD,Buy,28/04/2025 14:35:12.862000,n/a,oops,Closed`

	trades, err := ParseReport(strings.NewReader(input))

	assert.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.False(t, trades[0].NetProfit.Valid)
	assert.False(t, trades[0].Balance.Valid)
	assert.False(t, trades[0].Lots.Valid)
	assert.False(t, trades[0].Profitable)
}

func TestParseLots(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected float64
		valid    bool
	}{
		{name: "prefixed quantity", input: "Closed 0.50", expected: 0.50, valid: true},
		{name: "bare quantity", input: "0.75", expected: 0.75, valid: true},
		{name: "first match wins", input: "1.25 of 2.50", expected: 1.25, valid: true},
		{name: "integer without fraction", input: "Closed 2", valid: false},
		{name: "no number at all", input: "Closed", valid: false},
		{name: "empty cell", input: "", valid: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lots := parseLots(tc.input)

			assert.Equal(t, tc.valid, lots.Valid)
			if tc.valid {
				assert.Equal(t, tc.expected, lots.Float64)
			}
		})
	}
}
