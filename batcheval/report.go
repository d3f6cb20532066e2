package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// writeHTML renders an interactive report: per-image corner counts and area
// coverage, colored by verdict.
func writeHTML(path string, report *Report, minCorners int) error {
	labels := make([]string, 0, len(report.Rows))
	cornerData := make([]opts.BarData, 0, len(report.Rows))
	areaData := make([]opts.BarData, 0, len(report.Rows))
	for _, row := range report.Rows {
		labels = append(labels, filepath.Base(row.File))
		color := "#c23531"
		if row.Accepted {
			color = "#2f9e44"
		}
		cornerData = append(cornerData, opts.BarData{
			Value:     row.Corners,
			ItemStyle: &opts.ItemStyle{Color: color},
		})
		areaData = append(areaData, opts.BarData{
			Value:     row.AreaFraction,
			ItemStyle: &opts.ItemStyle{Color: color},
		})
	}

	corners := charts.NewBar()
	corners.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Board Pre-Screen", Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Detected corners per image",
			Subtitle: fmt.Sprintf("%d/%d accepted, threshold %d corners", report.Accepted, report.Total, minCorners),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	corners.SetXAxis(labels).AddSeries("corners", cornerData)

	area := charts.NewBar()
	area.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Board coverage (fraction of frame area)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	area.SetXAxis(labels).AddSeries("area_frac", areaData)

	page := components.NewPage()
	page.AddCharts(corners, area)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create HTML report: %v", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("failed to render HTML report: %v", err)
	}
	return nil
}
