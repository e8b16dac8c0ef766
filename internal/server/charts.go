package server

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"trade-journal-go/internal/journal"
)

// Dashboard palette, shared with the index page.
const (
	chartBackground = "#0E1117"
	equityColor     = "#FF5733"
	winColor        = "#2ECC71"
	lossColor       = "#E74C3C"
)

type renderer interface {
	Render(w io.Writer) error
}

func (s *Server) renderChart(c *gin.Context, chart renderer) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := chart.Render(c.Writer); err != nil {
		s.logger.Error("failed to render chart", zap.Error(err))
	}
}

func (s *Server) chartStats(c *gin.Context) (*journal.ReportStats, bool) {
	stats, err := s.svc.Stats(c.Param("id"))
	if err != nil {
		s.writeLookupError(c, err)
		return nil, false
	}
	return stats, true
}

// equityChart renders the balance over time as an area line chart.
func (s *Server) equityChart(c *gin.Context) {
	stats, ok := s.chartStats(c)
	if !ok {
		return
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeChalk,
			BackgroundColor: chartBackground,
			PageTitle:       "Balance over time",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Balance over time"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
	)

	x := make([]string, 0, len(stats.Equity))
	y := make([]opts.LineData, 0, len(stats.Equity))
	for _, p := range stats.Equity {
		x = append(x, p.Time.Format("2006-01-02 15:04"))
		y = append(y, opts.LineData{Value: p.Balance.InexactFloat64()})
	}

	line.SetXAxis(x).AddSeries("Balance (€)", y,
		charts.WithLineStyleOpts(opts.LineStyle{Color: equityColor}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: equityColor}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: equityColor, Opacity: 0.3}),
	)

	s.renderChart(c, line)
}

// instrumentsChart renders per-symbol net profit as horizontal bars, worst
// performer first.
func (s *Server) instrumentsChart(c *gin.Context) {
	stats, ok := s.chartStats(c)
	if !ok {
		return
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeChalk,
			BackgroundColor: chartBackground,
			PageTitle:       "Net profit by instrument",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Net profit by instrument (€)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
	)

	x := make([]string, 0, len(stats.Instruments))
	y := make([]opts.BarData, 0, len(stats.Instruments))
	for _, row := range stats.Instruments {
		x = append(x, row.Symbol)
		y = append(y, opts.BarData{
			Value:     row.TotalProfit.InexactFloat64(),
			ItemStyle: &opts.ItemStyle{Color: profitColor(row.TotalProfit)},
		})
	}

	bar.SetXAxis(x).AddSeries("Net profit (€)", y)
	bar.XYReversal()

	s.renderChart(c, bar)
}

// directionsChart renders the winning and losing share per position
// direction as stacked bars.
func (s *Server) directionsChart(c *gin.Context) {
	stats, ok := s.chartStats(c)
	if !ok {
		return
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeChalk,
			BackgroundColor: chartBackground,
			PageTitle:       "Buy vs. sell",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Buy vs. sell win/loss split (%)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		charts.WithLegendOpts(opts.Legend{Show: true}),
	)

	x := make([]string, 0, len(stats.Directions))
	lossShare := make([]opts.BarData, 0, len(stats.Directions))
	winShare := make([]opts.BarData, 0, len(stats.Directions))
	for _, row := range stats.Directions {
		x = append(x, row.Direction)
		lossShare = append(lossShare, opts.BarData{Value: row.LossPct, ItemStyle: &opts.ItemStyle{Color: lossColor}})
		winShare = append(winShare, opts.BarData{Value: row.WinPct, ItemStyle: &opts.ItemStyle{Color: winColor}})
	}

	bar.SetXAxis(x).
		AddSeries("Losing (%)", lossShare, charts.WithBarChartOpts(opts.BarChart{Stack: "split"})).
		AddSeries("Winning (%)", winShare, charts.WithBarChartOpts(opts.BarChart{Stack: "split"}))

	s.renderChart(c, bar)
}

// weekdaysChart renders net profit per weekday, Monday through Sunday.
func (s *Server) weekdaysChart(c *gin.Context) {
	stats, ok := s.chartStats(c)
	if !ok {
		return
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeChalk,
			BackgroundColor: chartBackground,
			PageTitle:       "Net profit by weekday",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Net profit by weekday (€)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
	)

	x := make([]string, 0, len(stats.Weekdays))
	y := make([]opts.BarData, 0, len(stats.Weekdays))
	for _, row := range stats.Weekdays {
		x = append(x, row.Day)
		y = append(y, opts.BarData{
			Value:     row.TotalProfit.InexactFloat64(),
			ItemStyle: &opts.ItemStyle{Color: profitColor(row.TotalProfit)},
		})
	}

	bar.SetXAxis(x).AddSeries("Net profit (€)", y)

	s.renderChart(c, bar)
}

// profitColor picks the palette color for a signed amount: green for gains,
// red for everything else, matching the breakdown tables.
func profitColor(d decimal.Decimal) string {
	if d.IsPositive() {
		return winColor
	}
	return lossColor
}
