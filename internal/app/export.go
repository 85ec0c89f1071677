package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
	"github.com/Datta-sai-vvn/StormAlert/internal/storage"
)

// Export renders the audit trail as CSV and/or a PNG chart of alert
// magnitudes over time.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * time.Minute)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	records, err := store.ListAlertsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no alerts found for export window")
		return nil
	}

	downsampled := downsampleRecords(records, opts.MaxPoints)
	a.Logger.Info().Int("total", len(records)).Int("exported", len(downsampled)).Msg("exporting alerts")

	if opts.CSVPath != "" {
		if err := writeAlertsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeAlertsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleRecords(records []storage.AlertRecord, max int) []storage.AlertRecord {
	if max <= 0 || len(records) <= max {
		return records
	}

	result := make([]storage.AlertRecord, 0, max)
	step := float64(len(records)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(records) {
			idx = len(records) - 1
		}
		result = append(result, records[idx])
	}
	return result
}

func writeAlertsCSV(path string, records []storage.AlertRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"triggered_at", "subscriber_id", "instrument", "alert_kind", "percent", "price", "algorithm"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, record := range records {
		row := []string{
			record.Timestamp.Format(time.RFC3339),
			record.Subscriber,
			record.Instrument,
			string(record.Kind),
			record.Percent.String(),
			record.Price.String(),
			record.Algorithm,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeAlertsPNG(path string, records []storage.AlertRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	var series []chart.Series
	for _, kind := range []market.AlertKind{market.KindDip, market.KindSpike} {
		var x []time.Time
		var y []float64
		for _, record := range records {
			if record.Kind != kind {
				continue
			}
			x = append(x, record.Timestamp)
			y = append(y, record.Percent.InexactFloat64())
		}
		if len(x) == 0 {
			continue
		}
		series = append(series, chart.TimeSeries{
			Name:    string(kind),
			XValues: x,
			YValues: y,
		})
	}
	if len(series) == 0 {
		return errors.New("no chartable alerts in window")
	}

	percentFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Move (%)",
			ValueFormatter: percentFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
