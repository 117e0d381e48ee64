package output

import "sort"

type countRow struct {
	Name  string
	Count int
}

// sortedCounts orders a name->count map by descending count, then name.
func sortedCounts(m map[string]int) []countRow {
	rows := make([]countRow, 0, len(m))
	for name, count := range m {
		rows = append(rows, countRow{Name: name, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
