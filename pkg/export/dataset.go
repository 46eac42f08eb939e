// Package export 表格数据渲染：CSV、XLSX、PDF
package export

import "errors"

// ErrNoHeaders 数据集缺少表头
var ErrNoHeaders = errors.New("导出数据缺少表头")

// Dataset 表格化导出内容，Rows 以表头为键
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// Record 按表头顺序取出一行
func (d Dataset) Record(row map[string]string) []string {
	record := make([]string, len(d.Headers))
	for i, h := range d.Headers {
		record[i] = row[h]
	}
	return record
}
