// Package dataset 负责从 CSV 加载原始事件表。
//
// 数据错误就地恢复，从不上抛：
//   - 缺失 user_id / item_id 的行被静默丢弃
//   - rating 列存在但单元格为空/非法时退化为中性评分 3.0
//   - 时间戳无法解析时退化为零值（构建矩阵时不做衰减惩罚，而不是拒绝该行）
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custkit/custkit/core"
)

// neutralRating 是 rating 列存在但单元格缺失/非法时的中性评分。
const neutralRating = 3.0

// timestampLayouts 是按顺序尝试的时间戳格式。
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// LoadFile 从 CSV 文件加载事件表。
// 必需列：user_id, item_id, event_type, timestamp；
// 可选列：item_name, category, rating。
func LoadFile(path string) ([]core.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load 从 reader 解析 CSV 事件表。首行必须是表头。
func Load(r io.Reader) ([]core.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // 行宽不齐时不报错，逐行按表头取列

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"user_id", "item_id", "event_type"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("events csv: missing required column %q", required)
		}
	}
	_, hasRating := col["rating"]

	var events []core.Event
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		ev := core.Event{
			UserID:   field(record, col, "user_id"),
			ItemID:   field(record, col, "item_id"),
			Type:     core.EventType(strings.ToLower(field(record, col, "event_type"))),
			ItemName: field(record, col, "item_name"),
			Category: field(record, col, "category"),
		}
		if !ev.Valid() {
			continue
		}

		if ts := field(record, col, "timestamp"); ts != "" {
			ev.Timestamp = ParseTimestamp(ts)
		}

		if hasRating {
			rating := neutralRating
			if raw := field(record, col, "rating"); raw != "" {
				if v, err := strconv.ParseFloat(raw, 64); err == nil {
					rating = v
				}
			}
			ev.Rating = &rating
		}

		events = append(events, ev)
	}
	return events, nil
}

// field 按表头取列值，列不存在或行太短时返回空串。
func field(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseTimestamp 依次尝试各格式；全部失败返回零值（不做衰减惩罚）。
// 摄入接口解析 JSON 事件时间戳时也使用此函数。
func ParseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
