// Package export renders sample query results as downloadable files.
package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/emryou/solar-log-hub/internal/domain"
)

// CSVHeader 固定表头
var CSVHeader = []string{"timestamp", "device", "sensor", "type", "value", "unit"}

// GenerateCSV 将采样集合渲染为 CSV 文本
// 缺失的可选字段渲染为空字段，绝不输出 "null" 字面量
// 字段值中的逗号不做转义（消费方默认字段内不含逗号；含逗号的名称会移位后续列）
func GenerateCSV(samples []*domain.Sample) []byte {
	var buf bytes.Buffer
	writeCSVLine(&buf, CSVHeader)
	for _, sp := range samples {
		writeCSVLine(&buf, sampleRow(sp))
	}
	return buf.Bytes()
}

func sampleRow(sp *domain.Sample) []string {
	return []string{
		sp.Ts.UTC().Format(time.RFC3339),
		sp.DeviceName,
		sp.SensorName,
		sp.SensorType,
		strconv.FormatFloat(sp.Value, 'f', -1, 64),
		sp.Unit,
	}
}

func writeCSVLine(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(f)
	}
	buf.WriteByte('\n')
}

// CSVFilename 导出文件名（附带生成时刻）
func CSVFilename(now time.Time) string {
	return fmt.Sprintf("samples_%s.csv", now.UTC().Format("20060102T150405Z"))
}
