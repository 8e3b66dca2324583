// package formatter renders subscriptions, options and run summaries as tables, CSV or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/desertthunder/podd/internal/models"
)

// Output formats accepted by the list command.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatPlain = "plain"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// SummaryRow is one podcast's line in a refresh summary.
type SummaryRow struct {
	Podcast    string
	New        int
	Offered    int
	Downloaded int
	Failed     int
	Status     string
}

// Subscriptions renders podcasts in the requested format.
func Subscriptions(podcasts []*models.Podcast, format string) ([]byte, error) {
	switch format {
	case FormatTable, "":
		return []byte(SubscriptionsTable(podcasts)), nil
	case FormatCSV:
		return SubscriptionsCSV(podcasts)
	case FormatPlain:
		return SubscriptionsText(podcasts), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (use %s, %s or %s)", format, FormatTable, FormatCSV, FormatPlain)
	}
}

// SubscriptionsTable renders podcasts as a numbered table. The numbers are the 1-based removal indexes.
func SubscriptionsTable(podcasts []*models.Podcast) string {
	rows := make([][]string, len(podcasts))
	for i, p := range podcasts {
		rows[i] = []string{strconv.Itoa(i + 1), p.Name, p.URL, p.Directory, lastSync(p.LastSync)}
	}
	return renderTable(
		[]string{"#", "Name", "URL", "Directory", "Last Sync"},
		rows,
		[]columnAlignment{alignRight},
	)
}

// SubscriptionsCSV converts podcasts to CSV with columns: ID, Name, URL, Directory, LastSync
func SubscriptionsCSV(podcasts []*models.Podcast) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "URL", "Directory", "LastSync"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range podcasts {
		synced := ""
		if p.LastSync != nil {
			synced = p.LastSync.UTC().Format(time.RFC3339)
		}
		record := []string{strconv.FormatInt(p.ID, 10), p.Name, p.URL, p.Directory, synced}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// SubscriptionsText renders a numbered "N. Name (URL)" list, used by the removal prompt.
func SubscriptionsText(podcasts []*models.Podcast) []byte {
	var buf bytes.Buffer
	for i, p := range podcasts {
		fmt.Fprintf(&buf, "%d. %s (%s)\n", i+1, p.Name, p.URL)
	}
	return buf.Bytes()
}

// OptionsTable renders the global settings.
func OptionsTable(s models.Settings) string {
	return renderTable(
		[]string{"Option", "Value"},
		[][]string{
			{"catalog", s.CatalogMode()},
			{models.OptionNewOnly, strconv.FormatBool(s.NewOnly)},
			{models.OptionDownloadDirectory, s.DownloadDirectory},
		},
		nil,
	)
}

// SummaryTable renders per-podcast refresh results with a totals footer.
func SummaryTable(rows []SummaryRow) string {
	var totals SummaryRow
	data := make([][]string, len(rows))
	for i, r := range rows {
		totals.New += r.New
		totals.Offered += r.Offered
		totals.Downloaded += r.Downloaded
		totals.Failed += r.Failed
		data[i] = []string{
			r.Podcast,
			strconv.Itoa(r.New),
			strconv.Itoa(r.Offered),
			strconv.Itoa(r.Downloaded),
			strconv.Itoa(r.Failed),
			r.Status,
		}
	}

	tw := newTable(
		[]string{"Podcast", "New", "Offered", "Downloaded", "Failed", "Status"},
		data,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
	tw.AppendFooter(table.Row{
		"Total",
		totals.New,
		totals.Offered,
		totals.Downloaded,
		totals.Failed,
		"",
	})
	return tw.Render()
}

func lastSync(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}
	return newTable(headers, rows, aligns).Render()
}

func newTable(headers []string, rows [][]string, aligns []columnAlignment) table.Writer {
	columns := len(headers)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)
	return tw
}
