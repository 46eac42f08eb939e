package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// RenderCSV 输出 CSV（含表头行）
func RenderCSV(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, ErrNoHeaders
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("写入 CSV 表头失败: %w", err)
	}
	for _, row := range data.Rows {
		if err := writer.Write(data.Record(row)); err != nil {
			return nil, fmt.Errorf("写入 CSV 行失败: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("刷新 CSV 失败: %w", err)
	}
	return buf.Bytes(), nil
}
