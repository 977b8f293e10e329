// Package sink writes the run's novel leads to their output destination.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/eventscout/internal/model"
)

// Sink receives the deduplicated leads at the end of a run. A write
// failure is surfaced to the caller as a run failure; it never rolls
// back history already committed.
type Sink interface {
	Write(ctx context.Context, leads []model.Lead) error
}

// XLSXSink appends each run's leads to a spreadsheet, one sheet per run.
type XLSXSink struct {
	path string
}

// NewXLSX creates a spreadsheet sink writing to path.
func NewXLSX(path string) *XLSXSink {
	return &XLSXSink{path: path}
}

var headers = []string{
	"Organization", "Registry ID", "Event", "Event Date", "URL",
	"Travel", "Auction", "Verified", "Confidence", "Email", "Phone", "Seed",
}

func (s *XLSXSink) Write(ctx context.Context, leads []model.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file, err := xlsx.OpenFile(s.path)
	if err != nil {
		// First run: start a fresh workbook.
		file = xlsx.NewFile()
	}

	sheetName, sheet, err := addRunSheet(file)
	if err != nil {
		return err
	}

	headerRow := sheet.AddRow()
	for _, h := range headers {
		headerRow.AddCell().Value = h
	}

	for _, lead := range leads {
		row := sheet.AddRow()
		row.AddCell().Value = lead.OrgName
		row.AddCell().Value = lead.RegistryID
		row.AddCell().Value = lead.EventName
		if lead.EventDate != nil {
			row.AddCell().Value = lead.EventDate.Format("2006-01-02")
		} else {
			row.AddCell().Value = ""
		}
		row.AddCell().Value = lead.URL
		row.AddCell().Value = boolCell(lead.Travel)
		row.AddCell().Value = boolCell(lead.Auction)
		row.AddCell().Value = boolCell(lead.Verified)
		row.AddCell().Value = fmt.Sprintf("%.2f", lead.Confidence)
		row.AddCell().Value = lead.ContactEmail
		row.AddCell().Value = lead.ContactPhone
		row.AddCell().Value = boolCell(lead.Seed)
	}

	if err := file.Save(s.path); err != nil {
		return eris.Wrapf(err, "sink: save %s", s.path)
	}

	zap.L().Info("sink: wrote leads",
		zap.String("path", s.path),
		zap.String("sheet", sheetName),
		zap.Int("leads", len(leads)),
	)
	return nil
}

// addRunSheet names the sheet after the run's start time. Two runs in
// the same second get a numeric suffix rather than a duplicate-name
// error from the workbook.
func addRunSheet(file *xlsx.File) (string, *xlsx.Sheet, error) {
	base := time.Now().UTC().Format("run 2006-01-02 150405")
	name := base
	for n := 2; ; n++ {
		sheet, err := file.AddSheet(name)
		if err == nil {
			return name, sheet, nil
		}
		if n > 100 {
			return "", nil, eris.Wrapf(err, "sink: add sheet %s", name)
		}
		name = fmt.Sprintf("%s (%d)", base, n)
	}
}

func boolCell(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
