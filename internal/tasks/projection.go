package tasks

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/desertthunder/kplor/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects how groups are ordered.
type SortKey int

const (
	SortByName SortKey = iota
	SortByRequests
)

func (k SortKey) String() string {
	if k == SortByRequests {
		return "requests"
	}
	return "name"
}

// ParseSortKey accepts "name" and "requests" (or "requestCount").
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name", "college", "institution":
		return SortByName, nil
	case "requests", "requestcount", "count":
		return SortByRequests, nil
	default:
		return SortByName, fmt.Errorf("unknown sort key %q", s)
	}
}

// SortDir is the sort direction.
type SortDir int

const (
	Asc SortDir = iota
	Desc
)

func (d SortDir) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseSortDir accepts "asc" and "desc".
func ParseSortDir(s string) (SortDir, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return Asc, fmt.Errorf("unknown sort direction %q", s)
	}
}

// Project groups records by exact institution, keeps the groups whose institution contains filter
// (case-insensitive), and orders them by key and dir.
//
// Groups start in first-appearance order and the sort is stable, so ties keep that order.
func Project(records []models.CourseRecord, filter string, key SortKey, dir SortDir) []models.GroupView {
	index := map[string]int{}
	groups := []models.GroupView{}
	for _, rec := range records {
		i, ok := index[rec.Institution]
		if !ok {
			i = len(groups)
			index[rec.Institution] = i
			groups = append(groups, models.GroupView{Institution: rec.Institution, Records: []models.CourseRecord{}})
		}
		groups[i].Records = append(groups[i].Records, rec)
		groups[i].TotalRequests += rec.RequestCount
	}

	needle := strings.ToLower(strings.TrimSpace(filter))
	filtered := groups[:0]
	for _, g := range groups {
		if needle == "" || strings.Contains(strings.ToLower(g.Institution), needle) {
			filtered = append(filtered, g)
		}
	}

	var less func(a, b models.GroupView) bool
	switch key {
	case SortByRequests:
		less = func(a, b models.GroupView) bool { return a.TotalRequests < b.TotalRequests }
	default:
		col := collate.New(language.Und, collate.IgnoreCase)
		less = func(a, b models.GroupView) bool { return col.CompareString(a.Institution, b.Institution) < 0 }
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if dir == Desc {
			return less(filtered[j], filtered[i])
		}
		return less(filtered[i], filtered[j])
	})
	return filtered
}

// ColumnFilters narrow the rows of an expanded group.
type ColumnFilters struct {
	Department string
	Term       string
	Title      string
}

// IsZero reports whether no column filter is set.
func (f ColumnFilters) IsZero() bool {
	return strings.TrimSpace(f.Department) == "" && strings.TrimSpace(f.Term) == "" && strings.TrimSpace(f.Title) == ""
}

// Match reports whether rec passes every set filter: department and title are case-insensitive substrings,
// term matches when its decimal form contains the filter.
func (f ColumnFilters) Match(rec models.CourseRecord) bool {
	if d := strings.ToLower(strings.TrimSpace(f.Department)); d != "" && !strings.Contains(strings.ToLower(rec.Department), d) {
		return false
	}
	if t := strings.TrimSpace(f.Term); t != "" && !strings.Contains(strconv.Itoa(rec.Term), t) {
		return false
	}
	if t := strings.ToLower(strings.TrimSpace(f.Title)); t != "" && !strings.Contains(strings.ToLower(rec.Title), t) {
		return false
	}
	return true
}

// Expand returns the rows of group that pass filters, in group order.
func Expand(group models.GroupView, filters ColumnFilters) []models.CourseRecord {
	rows := make([]models.CourseRecord, 0, len(group.Records))
	for _, rec := range group.Records {
		if filters.Match(rec) {
			rows = append(rows, rec)
		}
	}
	return rows
}
