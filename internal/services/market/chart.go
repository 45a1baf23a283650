package market

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// DefaultChartTimeframe applies when the request names none
const DefaultChartTimeframe = "1Y"

// ChartRange is the lookback window and candle resolution for a timeframe
type ChartRange struct {
	Lookback   time.Duration
	Resolution string
}

const day = 24 * time.Hour

var chartRanges = map[string]ChartRange{
	"1D":  {Lookback: day, Resolution: "5"},
	"5D":  {Lookback: 5 * day, Resolution: "30"},
	"1M":  {Lookback: 30 * day, Resolution: "D"},
	"6M":  {Lookback: 6 * 30 * day, Resolution: "D"},
	"1Y":  {Lookback: 365 * day, Resolution: "W"},
	"MAX": {Lookback: 5 * 365 * day, Resolution: "M"},
}

// RangeFor maps a timeframe to its window; unknown values use 1Y.
func RangeFor(timeframe string) ChartRange {
	if r, ok := chartRanges[strings.ToUpper(timeframe)]; ok {
		return r
	}
	return chartRanges[DefaultChartTimeframe]
}

// GetChart returns price points for the timeframe. On any upstream failure
// a random walk is returned with Fallback set.
func (s *Service) GetChart(ctx context.Context, ticker, timeframe string) (*models.ChartResponse, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if timeframe == "" {
		timeframe = DefaultChartTimeframe
	}

	now := s.now()
	r := RangeFor(timeframe)
	candles, err := s.finnhub.GetCandles(ctx, ticker, r.Resolution, now.Add(-r.Lookback), now)
	if err != nil || len(candles) == 0 {
		s.logger.Warn().Str("ticker", ticker).Str("timeframe", timeframe).Err(err).Msg("Chart fetch failed, using fallback")
		return &models.ChartResponse{
			Ticker:    ticker,
			Timeframe: timeframe,
			Data:      s.fallbackChart(timeframe, now),
			Fallback:  true,
		}, nil
	}

	points := make([]models.ChartPoint, len(candles))
	for i, c := range candles {
		points[i] = models.NewChartPoint(c.Time, c.Close)
	}
	return &models.ChartResponse{Ticker: ticker, Timeframe: timeframe, Data: points}, nil
}

// fallbackPointCount is 48 for 1D, 120 for 5D and 252 otherwise.
func fallbackPointCount(timeframe string) int {
	switch timeframe {
	case "1D":
		return 48
	case "5D":
		return 120
	default:
		return 252
	}
}

// fallbackChart builds an hourly random walk ending at now, floored at 50.
func (s *Service) fallbackChart(timeframe string, now time.Time) []models.ChartPoint {
	n := fallbackPointCount(timeframe)
	points := make([]models.ChartPoint, n)
	price := 150 + s.random()*50
	for i := 0; i < n; i++ {
		ts := now.Add(-time.Duration(n-i) * time.Hour)
		price += (s.random() - 0.5) * 2
		points[i] = models.NewChartPoint(ts, math.Max(50, price))
	}
	return points
}

// RenderChartPNG renders the timeframe's series as a PNG line chart
func (s *Service) RenderChartPNG(ctx context.Context, ticker, timeframe string) ([]byte, error) {
	resp, err := s.GetChart(ctx, ticker, timeframe)
	if err != nil {
		return nil, err
	}
	return RenderPriceChart(resp.Ticker, resp.Timeframe, resp.Data)
}

// RenderPriceChart draws points as a single green (rising) or red
// (falling) price line and returns PNG bytes.
func RenderPriceChart(ticker, timeframe string, points []models.ChartPoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, len(points))
	yValues := make([]float64, len(points))
	for i, p := range points {
		xValues[i] = time.UnixMilli(p.Timestamp)
		yValues[i] = p.Price
	}

	color := "16a34a" // green-600
	if yValues[len(yValues)-1] < yValues[0] {
		color = "dc2626" // red-600
	}

	layout := "Jan 02"
	switch timeframe {
	case "1D", "5D":
		layout = "15:04"
	case "1Y", "MAX":
		layout = "Jan 06"
	}

	series := chart.TimeSeries{
		Name: ticker,
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex(color),
			StrokeWidth: 2,
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s (%s)", ticker, timeframe),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format(layout)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{series},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
