package util

import (
	"Herald/internal/pkg/consts"
	"strings"
)

// NormalizePage 修正页码与页大小，返回 page、pageSize 与 offset
func NormalizePage(page, pageSize int) (int, int, int64) {
	if page < 1 {
		page = 1
	}
	if page > consts.MaxPage {
		page = consts.MaxPage
	}
	if pageSize < 1 {
		pageSize = consts.DefaultPageSize
	}
	if pageSize > consts.MaxPageSize {
		pageSize = consts.MaxPageSize
	}
	return page, pageSize, int64(page-1) * int64(pageSize)
}

// SplitIDs 解析逗号分隔的 ID 列表，去空去重并保持顺序
func SplitIDs(raw string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
