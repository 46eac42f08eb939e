package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// RenderXLSX 输出单 Sheet 的 Excel：首行标题（合并单元格），次行表头，其后为数据
func RenderXLSX(data Dataset, sheetName string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, ErrNoHeaders
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("创建 Sheet 失败: %w", err)
	}
	f.SetActiveSheet(idx)
	if sheetName != defaultSheet {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return nil, fmt.Errorf("删除默认 Sheet 失败: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("创建样式失败: %w", err)
	}

	row := 1
	if data.Title != "" {
		last, _ := excelize.CoordinatesToCellName(len(data.Headers), 1)
		_ = f.SetCellValue(sheetName, "A1", data.Title)
		_ = f.MergeCell(sheetName, "A1", last)
		_ = f.SetCellStyle(sheetName, "A1", "A1", headerStyle)
		row++
	}

	for i, h := range data.Headers {
		c, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheetName, c, h)
		_ = f.SetCellStyle(sheetName, c, c, headerStyle)
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, col, col, 20)
	}
	row++

	for _, r := range data.Rows {
		for i, v := range data.Record(r) {
			c, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheetName, c, v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("写入 Excel 失败: %w", err)
	}
	return buf.Bytes(), nil
}
