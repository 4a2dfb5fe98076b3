package growth

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/anthrogizi/anthrogizi/internal/anthro"
)

var chartTitles = map[anthro.Indicator]string{
	anthro.WeightForAge:            "Berat Badan menurut Umur",
	anthro.HeightForAge:            "Tinggi Badan menurut Umur",
	anthro.WeightForHeight:         "Berat Badan menurut Tinggi Badan",
	anthro.BMIForAge:               "IMT menurut Umur",
	anthro.HeadCircumferenceForAge: "Lingkar Kepala menurut Umur",
}

// referenceCurves are drawn at these SD offsets.
var referenceCurves = []struct {
	name  string
	z     float64
	color string
}{
	{"-2 SD", anthro.ModerateCutoff, "rgba(220, 53, 69, 0.7)"},
	{"Median", 0, "rgba(40, 167, 69, 0.9)"},
	{"+2 SD", anthro.AboveCutoff, "rgba(255, 193, 7, 0.8)"},
}

// RenderChart draws the reference curves of the scored indicator and the
// child's point as a self-contained echarts HTML page.
func RenderChart(ref *anthro.ReferenceTable, res anthro.ZScoreResult, m anthro.Measurement) (string, error) {
	ind := res.Indicator
	tbl, err := ref.Table(ind, m.Sex)
	if err != nil {
		return "", err
	}
	y, ok := ind.Observed(m)
	if !ok {
		return "", &anthro.MissingValueError{Indicator: ind, Field: "head circumference"}
	}

	xName := "Umur (bulan)"
	if ind.KeyKind() == anthro.KeyHeightCm {
		xName = "Tinggi (cm)"
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    chartTitles[ind],
			Subtitle: fmt.Sprintf("Z-score %.2f (%s)", res.Value, res.Severity.LocalStatus()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: xName,
			Type: "value",
			Min:  tbl.Min(),
			Max:  tbl.Max(),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: ind.Unit(),
			Type: "value",
		}),
	)

	for _, c := range referenceCurves {
		data := make([]opts.LineData, 0, tbl.Len())
		for i := 0; i < tbl.Len(); i++ {
			e := tbl.Entry(i)
			data = append(data, opts.LineData{
				Value: []interface{}{e.Key, round(anthro.ValueAtZ(e.L, e.M, e.S, c.z), 2)},
			})
		}
		line.AddSeries(c.name, data,
			charts.WithLineChartOpts(opts.LineChart{
				Smooth:     opts.Bool(true),
				ShowSymbol: opts.Bool(false),
			}),
			charts.WithLineStyleOpts(opts.LineStyle{
				Color: c.color,
				Width: 1.5,
			}),
		)
	}

	line.AddSeries("Anak", []opts.LineData{{Value: []interface{}{round(ind.Key(m), 2), y}}},
		charts.WithLineChartOpts(opts.LineChart{
			ShowSymbol: opts.Bool(true),
		}),
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color: "rgba(0, 123, 255, 1)",
		}),
	)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
