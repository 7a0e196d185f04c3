// Package report renders training diagnostics.
package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
)

// ROCRenderer draws held-out ROC curves as PNG images.
type ROCRenderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewROCRenderer returns a renderer producing 5x5 inch images.
func NewROCRenderer() *ROCRenderer {
	return &ROCRenderer{Width: 5 * vg.Inch, Height: 5 * vg.Inch}
}

// RenderROC plots the curve against the chance diagonal and returns PNG bytes.
func (r *ROCRenderer) RenderROC(points []model.ROCPoint, auc float64) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("report: need at least 2 ROC points, got %d", len(points))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Held-out ROC (AUC = %.3f)", auc)
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(points))
	for i, pt := range points {
		pts[i] = plotter.XY{X: pt.FalsePositiveRate, Y: pt.TruePositiveRate}
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("report: roc line: %w", err)
	}
	curve.LineStyle.Width = vg.Points(2)
	curve.LineStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return nil, fmt.Errorf("report: chance line: %w", err)
	}
	chance.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	chance.LineStyle.Color = color.Gray{Y: 128}

	p.Add(curve, chance)
	p.Legend.Add("model", curve)
	p.Legend.Add("chance", chance)
	p.Legend.Top = false
	p.Legend.Left = false

	w, err := p.WriterTo(r.Width, r.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("report: png writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("report: rendering png: %w", err)
	}
	return buf.Bytes(), nil
}
