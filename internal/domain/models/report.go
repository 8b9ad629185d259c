package models

import (
	"path"
	"strings"
	"time"
)

// ParseReportBlob derives the report date and format from a blob name such as
// "reports/2024-03-18.csv".
func ParseReportBlob(name string) (ReportBlob, bool) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))

	var format ReportFormat
	switch ext {
	case ".csv":
		format = ReportCSV
	case ".xlsx":
		format = ReportXLSX
	default:
		return ReportBlob{}, false
	}

	date, err := time.Parse(DateLayout, strings.TrimSuffix(base, path.Ext(base)))
	if err != nil {
		return ReportBlob{}, false
	}
	return ReportBlob{Name: name, Date: date, Format: format}, true
}
