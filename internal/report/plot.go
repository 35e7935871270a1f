package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/speedwatch/internal/db"
	"github.com/banshee-data/speedwatch/internal/units"
)

var (
	speedColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	limitColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// WritePlotPNG writes a PNG of speed and limit against seconds since the
// first sample.
func WritePlotPNG(w io.Writer, records []db.SampleRecord, unit string) error {
	p := plot.New()
	p.Title.Text = "Speed"
	p.X.Label.Text = "seconds"
	p.Y.Label.Text = units.Label(unit)
	p.Add(plotter.NewGrid())

	speedPts := make(plotter.XYs, 0, len(records))
	limitPts := make(plotter.XYs, 0, len(records))
	if len(records) > 0 {
		t0 := records[0].Sample.TimestampMillis
		for _, r := range records {
			x := float64(r.Sample.TimestampMillis-t0) / 1000
			if est := r.Estimate(); est.Valid {
				speedPts = append(speedPts, plotter.XY{X: x, Y: units.ConvertSpeed(est.KMH, unit)})
			}
			if !r.Limit.Unlimited {
				limitPts = append(limitPts, plotter.XY{X: x, Y: units.ConvertSpeed(r.Limit.KMH, unit)})
			}
		}
	}

	if len(speedPts) > 0 {
		speedLine, err := plotter.NewLine(speedPts)
		if err != nil {
			return fmt.Errorf("speed line: %w", err)
		}
		speedLine.Color = speedColor
		speedLine.Width = vg.Points(1.5)
		p.Add(speedLine)
		p.Legend.Add("speed", speedLine)
	}
	if len(limitPts) > 0 {
		limitLine, err := plotter.NewLine(limitPts)
		if err != nil {
			return fmt.Errorf("limit line: %w", err)
		}
		limitLine.Color = limitColor
		limitLine.Width = vg.Points(1)
		limitLine.StepStyle = plotter.PostStep
		p.Add(limitLine)
		p.Legend.Add("limit", limitLine)
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
