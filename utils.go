package vidode

import (
	"fmt"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotLossCurve Plot chart of loss values against training steps and save it as PNG/SVG
// (format follows the file extension).
func PlotLossCurve(losses []float64, fname string) error {
	if len(losses) == 0 {
		return fmt.Errorf("Loss history must have one value atleast")
	}
	scatterData := make(plotter.XYs, len(losses))
	for i, loss := range losses {
		scatterData[i].X = float64(i)
		scatterData[i].Y = loss
	}
	scatter, err := plotter.NewScatter(scatterData)
	if err != nil {
		return errors.Wrap(err, "Can't init new scatter")
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	p := plot.New()
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Loss"
	p.Add(plotter.NewGrid())
	p.Add(scatter)
	if err := p.Save(4*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

// LossStats Aggregated view over a loss history window
type LossStats struct {
	Mean   float64
	StdDev float64
	Last   float64
}

// SummarizeLosses Mean/stddev/last-value summary of a loss history
func SummarizeLosses(losses []float64) (LossStats, error) {
	if len(losses) == 0 {
		return LossStats{}, fmt.Errorf("Loss history must have one value atleast")
	}
	mean, std := stat.MeanStdDev(losses, nil)
	return LossStats{
		Mean:   mean,
		StdDev: std,
		Last:   losses[len(losses)-1],
	}, nil
}
