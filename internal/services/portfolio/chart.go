package portfolio

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/folio/internal/models"
)

// CumulativeReturns returns the chained return at the end of each sub-period,
// in percent. The first point is the start of the first sub-period at 0%.
func CumulativeReturns(result *models.TWRResult) ([]time.Time, []float64) {
	if result == nil || len(result.SubPeriods) == 0 {
		return nil, nil
	}

	dates := []time.Time{result.SubPeriods[0].Start}
	values := []float64{0}
	returns := make([]decimal.Decimal, 0, len(result.SubPeriods))
	for _, p := range result.SubPeriods {
		returns = append(returns, p.Return)
		dates = append(dates, p.End)
		values = append(values, ChainReturns(returns).Mul(hundred).InexactFloat64())
	}
	return dates, values
}

// RenderTWRChart renders a PNG line chart of the cumulative time-weighted
// return. Returns raw PNG bytes.
func RenderTWRChart(result *models.TWRResult) ([]byte, error) {
	xValues, yValues := CumulativeReturns(result)
	if len(xValues) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(xValues))
	}

	returnSeries := chart.TimeSeries{
		Name: "Cumulative TWR",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	baseline := chart.TimeSeries{
		Name: "Break-even",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: []time.Time{xValues[0], xValues[len(xValues)-1]},
		YValues: []float64{0, 0},
	}

	graph := chart.Chart{
		Title:  "Time-Weighted Return",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.1f%%", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			returnSeries,
			baseline,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
