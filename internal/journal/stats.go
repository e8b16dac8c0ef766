package journal

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"trade-journal-go/internal/models"
)

// ProfitFactor is gross gains divided by gross losses. A report whose losing
// trades sum to zero has no finite ratio, so that case is carried as an
// explicit flag instead of an overloaded float.
type ProfitFactor struct {
	Ratio    decimal.Decimal `json:"ratio"`
	Infinite bool            `json:"infinite"`
}

func (pf ProfitFactor) String() string {
	if pf.Infinite {
		return "inf"
	}
	return pf.Ratio.StringFixed(2)
}

// Summary holds the headline figures of a report. A trade counts as losing
// when it is not winning, so breakeven trades and trades with a missing net
// profit land on the losing side. Monetary fields and rates are rounded to
// two decimals after all intermediate math ran at full precision.
type Summary struct {
	TotalTrades   int             `json:"total_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	WinRate       float64         `json:"win_rate"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	TotalGains    decimal.Decimal `json:"total_gains"`
	TotalLosses   decimal.Decimal `json:"total_losses"`
	AvgWin        decimal.Decimal `json:"avg_win"`
	AvgLoss       decimal.Decimal `json:"avg_loss"`
	ProfitFactor  ProfitFactor    `json:"profit_factor"`
	Expectancy    decimal.Decimal `json:"expectancy"`
}

// InstrumentStats aggregates the trades of one symbol.
type InstrumentStats struct {
	Symbol      string          `json:"symbol"`
	Trades      int             `json:"trades"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	WinRate     float64         `json:"win_rate"`
}

// DirectionStats splits one position direction into the share of winning and
// losing trades. The two percentages are rounded independently.
type DirectionStats struct {
	Direction string  `json:"direction"`
	Trades    int     `json:"trades"`
	WinPct    float64 `json:"win_pct"`
	LossPct   float64 `json:"loss_pct"`
}

// WeekdayStats aggregates the trades closed on one day of the week.
type WeekdayStats struct {
	Day         string          `json:"day"`
	Trades      int             `json:"trades"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	WinRate     float64         `json:"win_rate"`
}

// EquityPoint is one step of the account balance over time.
type EquityPoint struct {
	Time    time.Time       `json:"time"`
	Balance decimal.Decimal `json:"balance"`
}

// ReportStats is the full analysis of one report.
type ReportStats struct {
	Summary     Summary           `json:"summary"`
	Instruments []InstrumentStats `json:"instruments"`
	Directions  []DirectionStats  `json:"directions"`
	Weekdays    []WeekdayStats    `json:"weekdays"`
	Equity      []EquityPoint     `json:"equity"`
}

// Analyze computes the full breakdown of a report. Trades are expected in
// the order they appeared in the source file; the equity curve keeps it.
func Analyze(trades []models.Trade) ReportStats {
	return ReportStats{
		Summary:     Summarize(trades),
		Instruments: instrumentBreakdown(trades),
		Directions:  directionBreakdown(trades),
		Weekdays:    weekdayBreakdown(trades),
		Equity:      equityCurve(trades),
	}
}

// Summarize computes the headline figures of a set of trades.
func Summarize(trades []models.Trade) Summary {
	s := Summary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return s
	}

	var (
		gains, lossSum decimal.Decimal
		wins, losers   int
	)
	for _, t := range trades {
		if t.Profitable {
			wins++
			gains = gains.Add(t.NetProfit.Decimal)
			continue
		}
		if t.NetProfit.Valid {
			losers++
			lossSum = lossSum.Add(t.NetProfit.Decimal)
		}
	}

	s.WinningTrades = wins
	s.LosingTrades = len(trades) - wins
	s.TotalGains = gains.Round(2)
	s.TotalLosses = lossSum.Abs().Round(2)
	s.TotalProfit = gains.Add(lossSum).Round(2)

	var avgWin, avgLoss decimal.Decimal
	if wins > 0 {
		avgWin = gains.Div(decimal.NewFromInt(int64(wins)))
	}
	if losers > 0 {
		avgLoss = lossSum.Div(decimal.NewFromInt(int64(losers)))
	}

	// expectancy = winRate/100*avgWin + (100-winRate)/100*avgLoss, folded so
	// the weights stay exact fractions of the trade count.
	total := decimal.NewFromInt(int64(len(trades)))
	expectancy := avgWin.Mul(decimal.NewFromInt(int64(wins))).
		Add(avgLoss.Mul(decimal.NewFromInt(int64(len(trades) - wins)))).
		Div(total)

	s.WinRate = round2(float64(wins) / float64(len(trades)) * 100)
	s.AvgWin = avgWin.Round(2)
	s.AvgLoss = avgLoss.Round(2)
	s.Expectancy = expectancy.Round(2)
	s.ProfitFactor = newProfitFactor(gains, lossSum.Abs(), len(trades))
	return s
}

func newProfitFactor(gains, losses decimal.Decimal, totalTrades int) ProfitFactor {
	if losses.IsZero() {
		return ProfitFactor{Infinite: totalTrades > 0}
	}
	return ProfitFactor{Ratio: gains.Div(losses).Round(2)}
}

// instrumentBreakdown groups trades by symbol, worst total profit first.
// Symbols tied on profit sort alphabetically.
func instrumentBreakdown(trades []models.Trade) []InstrumentStats {
	groups := make(map[string]*InstrumentStats)
	wins := make(map[string]int)
	for _, t := range trades {
		g, ok := groups[t.Symbol]
		if !ok {
			g = &InstrumentStats{Symbol: t.Symbol}
			groups[t.Symbol] = g
		}
		g.Trades++
		if t.NetProfit.Valid {
			g.TotalProfit = g.TotalProfit.Add(t.NetProfit.Decimal)
		}
		if t.Profitable {
			wins[t.Symbol]++
		}
	}

	rows := make([]InstrumentStats, 0, len(groups))
	for sym, g := range groups {
		g.TotalProfit = g.TotalProfit.Round(2)
		g.WinRate = round2(float64(wins[sym]) / float64(g.Trades) * 100)
		rows = append(rows, *g)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].TotalProfit.Cmp(rows[j].TotalProfit); c != 0 {
			return c < 0
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}

// directionBreakdown normalizes each direction to 100 percent. A direction
// with no winners still reports a zero win share rather than a missing one.
func directionBreakdown(trades []models.Trade) []DirectionStats {
	counts := make(map[string]int)
	wins := make(map[string]int)
	for _, t := range trades {
		counts[t.Direction]++
		if t.Profitable {
			wins[t.Direction]++
		}
	}

	dirs := make([]string, 0, len(counts))
	for d := range counts {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	rows := make([]DirectionStats, 0, len(dirs))
	for _, d := range dirs {
		n, w := counts[d], wins[d]
		rows = append(rows, DirectionStats{
			Direction: d,
			Trades:    n,
			WinPct:    round2(float64(w) / float64(n) * 100),
			LossPct:   round2(float64(n-w) / float64(n) * 100),
		})
	}
	return rows
}

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// weekdayBreakdown groups trades by the weekday they closed on, Monday
// through Sunday. Days without trades are left out.
func weekdayBreakdown(trades []models.Trade) []WeekdayStats {
	type agg struct {
		trades, wins int
		profit       decimal.Decimal
	}
	groups := make(map[time.Weekday]*agg)
	for _, t := range trades {
		day := t.CloseTime.Weekday()
		g, ok := groups[day]
		if !ok {
			g = &agg{}
			groups[day] = g
		}
		g.trades++
		if t.NetProfit.Valid {
			g.profit = g.profit.Add(t.NetProfit.Decimal)
		}
		if t.Profitable {
			g.wins++
		}
	}

	rows := make([]WeekdayStats, 0, len(groups))
	for _, day := range weekdayOrder {
		g, ok := groups[day]
		if !ok {
			continue
		}
		rows = append(rows, WeekdayStats{
			Day:         day.String(),
			Trades:      g.trades,
			TotalProfit: g.profit.Round(2),
			WinRate:     round2(float64(g.wins) / float64(g.trades) * 100),
		})
	}
	return rows
}

// equityCurve keeps the balance points in file order, skipping trades whose
// balance cell did not parse.
func equityCurve(trades []models.Trade) []EquityPoint {
	points := make([]EquityPoint, 0, len(trades))
	for _, t := range trades {
		if !t.Balance.Valid {
			continue
		}
		points = append(points, EquityPoint{Time: t.CloseTime, Balance: t.Balance.Decimal})
	}
	return points
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
