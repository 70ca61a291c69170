package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/emryou/solar-log-hub/internal/domain"
)

// GenerateXLSX 将采样集合渲染为 Excel 文件
// 列与 CSV 导出一致
func GenerateXLSX(samples []*domain.Sample) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Samples"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, name := range CSVHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, sp := range samples {
		row := i + 2
		values := []any{
			sp.Ts.UTC().Format(time.RFC3339),
			sp.DeviceName,
			sp.SensorName,
			sp.SensorType,
			sp.Value,
			sp.Unit,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	// 时间戳列加宽便于阅读
	_ = f.SetColWidth(sheetName, "A", "A", 22)

	var buf []byte
	w, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	buf = w.Bytes()
	_ = f.Close()
	return buf, nil
}

// XLSXFilename 导出文件名（附带生成时刻）
func XLSXFilename(now time.Time) string {
	return fmt.Sprintf("samples_%s.xlsx", now.UTC().Format("20060102T150405Z"))
}
