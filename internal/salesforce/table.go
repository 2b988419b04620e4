package salesforce

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// Row 一行数据（列名 → 标量值）
type Row map[string]string

// RowTable 批量写入的行表
// 列顺序显式声明，不依赖行的 map 迭代顺序（目标表示不保证字段顺序）
type RowTable struct {
	Columns []string
	Rows    []Row
}

// NewRowTable 创建行表
func NewRowTable(columns ...string) *RowTable {
	return &RowTable{
		Columns: columns,
		Rows:    make([]Row, 0),
	}
}

// Append 追加一行
func (t *RowTable) Append(row Row) {
	t.Rows = append(t.Rows, row)
}

// Len 行数
func (t *RowTable) Len() int {
	return len(t.Rows)
}

// EncodeCSV 按显式列顺序编码为 CSV（首行为表头）
func (t *RowTable) EncodeCSV() ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("row table has no columns")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write csv header failed: %w", err)
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row failed: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv failed: %w", err)
	}

	return buf.Bytes(), nil
}

// ParseResultCSV 解析结果 CSV（首行为表头）为行列表
func ParseResultCSV(data []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(data))

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header failed: %w", err)
	}

	rows := make([]Row, 0)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row failed: %w", err)
		}

		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
