package docstore

import (
	"encoding/json"
	"strings"

	"github.com/elliotchance/pie/v2"
)

// Search keeps the records whose id or JSON encoding contains query,
// case-insensitively. A blank query returns records unchanged.
func Search(records map[string]Record, query string) map[string]Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}
	out := make(map[string]Record)
	for id, rec := range records {
		encoded, _ := json.Marshal(rec)
		if strings.Contains(strings.ToLower(id), q) || strings.Contains(strings.ToLower(string(encoded)), q) {
			out[id] = rec
		}
	}
	return out
}

// SortedIDs returns the record ids in ascending order.
func SortedIDs(records map[string]Record) []string {
	return pie.Sort(pie.Keys(records))
}

// Fields returns the union of field names across records, sorted. It is the
// column set of a collection and the form for new records.
func Fields(records map[string]Record) []string {
	var keys []string
	for _, rec := range records {
		keys = append(keys, pie.Keys(rec)...)
	}
	return pie.Sort(pie.Unique(keys))
}
