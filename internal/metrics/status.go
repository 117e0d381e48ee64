package metrics

import "sort"

// CodeBucket is the aggregated failure count for a label/response code pair.
type CodeBucket struct {
	Label string
	Code  string
	Count int
}

// FlattenCodes converts a nested label->code map into a sorted slice of rows.
// Rows are sorted by descending count, then by label/code for stability.
func FlattenCodes(codes map[string]map[string]int) []CodeBucket {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]CodeBucket, 0)
	for label, byCode := range codes {
		for code, count := range byCode {
			rows = append(rows, CodeBucket{Label: label, Code: code, Count: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			if rows[i].Label == rows[j].Label {
				return rows[i].Code < rows[j].Code
			}
			return rows[i].Label < rows[j].Label
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
