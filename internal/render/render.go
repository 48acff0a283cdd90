// Package render draws signal results as PNG charts and wraps them in
// self-contained HTML image fragments.
package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("render: no data to plot")

// Figure is a finished plot with its canvas size and alt text.
type Figure struct {
	Plot   *plot.Plot
	Width  vg.Length
	Height vg.Length
	Alt    string
}

// PNG encodes the figure.
func (f Figure) PNG() ([]byte, error) {
	w, err := f.Plot.WriterTo(f.Width, f.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", f.Alt, err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", f.Alt, err)
	}
	return buf.Bytes(), nil
}

// HTML returns the figure as an inline <img> fragment.
func (f Figure) HTML() (string, error) {
	png, err := f.PNG()
	if err != nil {
		return "", err
	}
	return ImgTag(png, f.Alt), nil
}

// ImgTag embeds png as a base64 data URI.
func ImgTag(png []byte, alt string) string {
	return fmt.Sprintf(`<img src="data:image/png;base64,%s" alt="%s">`,
		base64.StdEncoding.EncodeToString(png), html.EscapeString(alt))
}

// WriteHTML renders f into path, creating parent directories.
func WriteHTML(path string, f Figure) error {
	frag, err := f.HTML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(frag), 0644)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// inches converts figure sizes given in inches.
func inches(w, h float64) (vg.Length, vg.Length) {
	return vg.Length(w) * vg.Inch, vg.Length(h) * vg.Inch
}
