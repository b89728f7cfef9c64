package cmd

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"golang.org/x/image/font/opentype"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/zalepa/unidash/dashboard"
)

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch

	chartWidth  = 9 * vg.Inch
	chartHeight = 4.5 * vg.Inch

	// maxLegend is the most series that get a legend entry; larger charts
	// rely on the summary table for names.
	maxLegend = 12
)

var chartBlue = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// useFont registers the font at path and makes it the default for every
// chart. The bundled Liberation fonts have no Hangul glyphs.
func useFont(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading font: %w", err)
	}
	face, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing font %s: %w", path, err)
	}
	fnt := font.Font{Typeface: "unidash"}
	font.DefaultCache.Add(font.Collection{{Font: fnt, Face: face}})
	plot.DefaultFont = fnt
	return nil
}

// renderPDF writes v as a PDF: the institution chart, the category chart,
// and a sparkline summary of every institution.
func renderPDF(path string, v *dashboard.View) error {
	c := vgpdf.New(pageWidth, pageHeight)
	writeViewPages(c, v)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeViewPages(c *vgpdf.Canvas, v *dashboard.View) {
	pages := 0
	next := func() {
		if pages > 0 {
			c.NextPage()
		}
		pages++
	}

	if p := lineChart(v.Metric+" by institution", v.InstitutionSeries); p != nil {
		next()
		drawChartPage(c, p)
	}
	if p := lineChart(v.Metric+" by category", v.CategorySeries); p != nil {
		next()
		drawChartPage(c, p)
	}
	if len(v.InstitutionSeries) > 1 {
		next()
		drawSummaryPages(c, v.Metric, v.InstitutionSeries, v.SelectedPeriods)
	}
	if pages == 0 {
		area := pageArea(c)
		fillText(area, v.Metric+": no chart data", vg.Points(14), area.Min.X, area.Max.Y-vg.Points(14), color.Black)
	}
}

// lineChart plots each series against its period index. It returns nil when
// no series has a value.
func lineChart(title string, series []dashboard.Series) *plot.Plot {
	periods := dashboard.Periods(series)
	if len(periods) == 0 {
		return nil
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.BackgroundColor = color.White
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, s := range series {
		var pts plotter.XYs
		for x, y := range s.Aligned(periods) {
			if !math.IsNaN(y) {
				pts = append(pts, plotter.XY{X: float64(x), Y: y})
			}
		}
		if len(pts) == 0 {
			continue
		}
		clr := plotutil.Color(i)

		line, err := plotter.NewLine(pts)
		if err != nil {
			continue
		}
		line.Color = clr
		line.Width = vg.Points(2)

		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			continue
		}
		scatter.Color = clr
		scatter.Radius = vg.Points(3)
		scatter.Shape = draw.CircleGlyph{}

		p.Add(line, scatter)
		if len(series) <= maxLegend {
			p.Legend.Add(s.Name, line, scatter)
		}
	}

	p.X.Tick.Marker = dateTicks(periods)
	p.X.Min = -0.5
	p.X.Max = float64(len(periods)) - 0.5
	p.Y.Tick.Marker = numTicks{}
	return p
}

// writeChartPNG encodes p as a PNG image.
func writeChartPNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

func pageArea(c *vgpdf.Canvas) draw.Canvas {
	return draw.Crop(draw.New(c), pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
}

func drawChartPage(c *vgpdf.Canvas, p *plot.Plot) {
	area := pageArea(c)
	// Keep charts landscape-shaped at the top of the portrait page.
	area.Min.Y = area.Max.Y - (area.Max.X-area.Min.X)*0.75
	p.Draw(area)
}

const (
	summaryRowHeight = 0.30 * vg.Inch
	nameColWidth     = 2.6 * vg.Inch
	valueColWidth    = 0.9 * vg.Inch
)

func drawSummaryPages(c *vgpdf.Canvas, title string, series []dashboard.Series, periods []string) {
	usableW := pageWidth - 2*pdfMargin
	sparkColWidth := usableW - nameColWidth - valueColWidth

	periodRange := ""
	if len(periods) > 0 {
		periodRange = fmt.Sprintf("%s to %s (%d periods)", periods[0], periods[len(periods)-1], len(periods))
	}

	pageNum := 0
	rowIdx := 0
	for rowIdx < len(series) {
		if pageNum > 0 {
			c.NextPage()
		}
		pageNum++
		area := pageArea(c)

		yTop := area.Max.Y
		if pageNum == 1 {
			fillText(area, title, vg.Points(14), area.Min.X, yTop-vg.Points(14), color.Black)
			fillText(area, periodRange, vg.Points(10), area.Min.X, yTop-0.35*vg.Inch, color.Gray{Y: 100})

			headerY := yTop - 0.6*vg.Inch
			fillText(area, "Institution", vg.Points(10), area.Min.X, headerY, color.Gray{Y: 80})
			fillText(area, "Latest", vg.Points(10), area.Min.X+nameColWidth, headerY, color.Gray{Y: 80})
			fillText(area, "Trend", vg.Points(10), area.Min.X+nameColWidth+valueColWidth, headerY, color.Gray{Y: 80})

			sepY := headerY - vg.Points(6)
			strokeHLine(area, area.Min.X, area.Min.X+usableW, sepY, color.Gray{Y: 180})
			yTop = sepY - vg.Points(4)
		} else {
			yTop -= vg.Points(8)
			fillText(area, title+" (continued)", vg.Points(10), area.Min.X, yTop, color.Gray{Y: 100})
			yTop -= 0.25 * vg.Inch
		}

		rowsThisPage := int((yTop - area.Min.Y) / summaryRowHeight)
		for drawn := 0; rowIdx < len(series) && drawn < rowsThisPage; drawn++ {
			s := series[rowIdx]
			rowIdx++

			rowTop := yTop - vg.Length(drawn)*summaryRowHeight
			y := rowTop - summaryRowHeight*0.65
			vals := s.Aligned(periods)
			fillText(area, s.Name, vg.Points(9), area.Min.X, y, color.Black)
			fillText(area, formatNum(lastNonNaN(vals)), vg.Points(9), area.Min.X+nameColWidth, y, color.Black)

			sparkX := area.Min.X + nameColWidth + valueColWidth
			sparkY := rowTop - summaryRowHeight + vg.Points(2)
			drawSparkline(draw.Canvas{
				Canvas: area.Canvas,
				Rectangle: vg.Rectangle{
					Min: vg.Point{X: sparkX, Y: sparkY},
					Max: vg.Point{X: sparkX + sparkColWidth, Y: sparkY + summaryRowHeight - vg.Points(3)},
				},
			}, vals)
		}
	}
}

func drawSparkline(c draw.Canvas, vals []float64) {
	var pts plotter.XYs
	for i, v := range vals {
		if !math.IsNaN(v) {
			pts = append(pts, plotter.XY{X: float64(i), Y: v})
		}
	}
	if len(pts) < 2 {
		return
	}

	p := plot.New()
	p.HideAxes()
	p.BackgroundColor = color.Transparent

	line, err := plotter.NewLine(pts)
	if err != nil {
		return
	}
	line.Color = chartBlue
	line.Width = vg.Points(1.5)
	p.Add(line)

	p.X.Min = 0
	p.X.Max = float64(len(vals) - 1)
	minY, maxY := pts[0].Y, pts[0].Y
	for _, pt := range pts {
		minY = math.Min(minY, pt.Y)
		maxY = math.Max(maxY, pt.Y)
	}
	pad := (maxY - minY) * 0.1
	if pad == 0 {
		pad = 1
	}
	p.Y.Min = minY - pad
	p.Y.Max = maxY + pad

	p.Draw(c)
}

// dateTicks labels the x axis with period names, thinning labels past twelve.
type dateTicks []string

func (dt dateTicks) Ticks(min, max float64) []plot.Tick {
	n := len(dt)
	step := 1
	if n > 12 {
		step = (n + 11) / 12
	}
	ticks := make([]plot.Tick, 0, n)
	for i := 0; i < n; i++ {
		t := plot.Tick{Value: float64(i)}
		if i%step == 0 {
			t.Label = dt[i]
		}
		ticks = append(ticks, t)
	}
	return ticks
}

type numTicks struct{}

func (numTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = formatCompact(ticks[i].Value)
		}
	}
	return ticks
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, txt)
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}
