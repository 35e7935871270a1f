package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/speedwatch/internal/db"
	"github.com/banshee-data/speedwatch/internal/units"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderChart writes an HTML line chart of speed and limit over time.
// Samples without an estimate leave a gap in the speed line.
func RenderChart(w io.Writer, trip *db.Trip, records []db.SampleRecord, unit string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	xs := make([]string, 0, len(records))
	speed := make([]opts.LineData, 0, len(records))
	limit := make([]opts.LineData, 0, len(records))
	for _, r := range records {
		xs = append(xs, r.Sample.Time().In(loc).Format("15:04:05"))
		if est := r.Estimate(); est.Valid {
			speed = append(speed, opts.LineData{Value: round2(units.ConvertSpeed(est.KMH, unit))})
		} else {
			speed = append(speed, opts.LineData{Value: "-"})
		}
		if r.Limit.Unlimited {
			limit = append(limit, opts.LineData{Value: "-"})
		} else {
			limit = append(limit, opts.LineData{Value: round2(units.ConvertSpeed(r.Limit.KMH, unit))})
		}
	}

	stats := Compute(records, unit)
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Trip speed", Width: "100%", Height: "600px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Trip %s", trip.ID),
			Subtitle: fmt.Sprintf("started %s, %d samples, %.2f km, p85 %.1f %s",
				trip.StartedAt.In(loc).Format(time.RFC3339), stats.Samples, stats.DistanceKM, stats.P85Speed, units.Label(unit)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: units.Label(unit)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(xs).
		AddSeries("speed", speed).
		AddSeries("limit", limit, charts.WithLineChartOpts(opts.LineChart{Step: "end"}))

	return line.Render(w)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
