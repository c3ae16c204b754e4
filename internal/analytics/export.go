package analytics

import (
	"encoding/csv"
	"io"
	"strings"
	"time"

	"shortlink-service/internal/model"
)

// MaxExportRows 单次导出的最大行数
const MaxExportRows = 5000

// ExportHeader CSV 表头
var ExportHeader = []string{"Timestamp", "IP (Anonymized)", "Country", "City", "Device", "OS", "Browser", "Referrer"}

// 字段中的逗号和换行替换为空格，保证每行列数固定
var fieldReplacer = strings.NewReplacer(",", " ", "\r\n", " ", "\n", " ", "\r", " ")

// WriteCSV 按传入顺序写出点击事件，超过 MaxExportRows 的部分被截断
func WriteCSV(w io.Writer, events []model.ClickEvent) error {
	if len(events) > MaxExportRows {
		events = events[:MaxExportRows]
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, e := range events {
		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.IPAddressHash,
			e.Country,
			e.City,
			e.DeviceType,
			e.OS,
			e.Browser,
			e.Referrer,
		}
		for i := range record {
			record[i] = fieldReplacer.Replace(record[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
