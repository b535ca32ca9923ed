// Package report renders an HTML overview of sweep output: how many
// reductions were found per ℓ and how often each one repeats.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"mfmodell/reduction"
)

// Summary describes the records of one ℓ. ClassSizes[s] is the number of
// distinct reductions shared by exactly s records.
type Summary struct {
	Ell        uint64
	Records    int
	Distinct   int
	ClassSizes map[int]int
}

// Summarize groups records by ℓ. Indices are taken as assigned: a class
// of size s contributes one record of each index 1..s.
func Summarize(records []reduction.Record) []Summary {
	byEll := map[uint64]map[int]int{}
	for _, r := range records {
		idx := byEll[r.Ell]
		if idx == nil {
			idx = map[int]int{}
			byEll[r.Ell] = idx
		}
		idx[r.Index]++
	}
	out := make([]Summary, 0, len(byEll))
	for ell, idx := range byEll {
		s := Summary{Ell: ell, Distinct: idx[1], ClassSizes: map[int]int{}}
		for i, n := range idx {
			s.Records += n
			if size := n - idx[i+1]; size > 0 {
				s.ClassSizes[i] = size
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ell < out[j].Ell })
	return out
}

// Render writes a page with one totals chart and one multiplicity chart
// per ℓ.
func Render(w io.Writer, title string, sums []Summary) error {
	page := components.NewPage().SetPageTitle(title)
	page.AddCharts(totalsChart(title, sums))
	for _, s := range sums {
		page.AddCharts(classChart(s))
	}
	return page.Render(w)
}

func totalsChart(title string, sums []Summary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "records and distinct reductions per ℓ"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "ℓ", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: opts.Bool(true),
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{Show: opts.Bool(true)},
			},
		}),
	)
	xs := make([]string, len(sums))
	recs := make([]opts.BarData, len(sums))
	dist := make([]opts.BarData, len(sums))
	for i, s := range sums {
		xs[i] = strconv.FormatUint(s.Ell, 10)
		recs[i] = opts.BarData{Value: s.Records}
		dist[i] = opts.BarData{Value: s.Distinct}
	}
	bar.SetXAxis(xs).
		AddSeries("records", recs).
		AddSeries("distinct", dist)
	return bar
}

func classChart(s Summary) *charts.Bar {
	sizes := make([]int, 0, len(s.ClassSizes))
	for size := range s.ClassSizes {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	xs := make([]string, len(sizes))
	ys := make([]opts.BarData, len(sizes))
	for i, size := range sizes {
		xs[i] = strconv.Itoa(size)
		ys[i] = opts.BarData{Value: s.ClassSizes[size]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("mod %d", s.Ell),
			Subtitle: fmt.Sprintf("%d records, %d distinct", s.Records, s.Distinct),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "multiplicity", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "reductions"}),
	)
	bar.SetXAxis(xs).AddSeries("reductions", ys)
	return bar
}
