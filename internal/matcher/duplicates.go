package matcher

import (
	"sort"

	"invoice-reconciliation-service/internal/models"
)

// DuplicateGroup is a set of records from one source sharing a grouping key.
// Duplicate detection runs within each source independently and is unrelated
// to cross-source matching: a duplicated record still participates in
// reconciliation like any other.
type DuplicateGroup struct {
	Source  models.Source              `json:"source"`
	Field   DuplicateField             `json:"field"`
	Value   string                     `json:"value"`
	Members []*models.NormalizedRecord `json:"members"`
}

// findDuplicates groups one side's records by each configured duplicate
// field and keeps groups with two or more members. Group members are ordered
// by row position; groups are ordered by configured field, then key value.
func (e *Engine) findDuplicates(source models.Source, records []*models.NormalizedRecord) []DuplicateGroup {
	var groups []DuplicateGroup

	for _, field := range e.config.DuplicateFields {
		byKey := make(map[string][]*models.NormalizedRecord)
		for _, record := range records {
			key, ok := duplicateKey(field, record)
			if !ok {
				continue
			}
			byKey[key] = append(byKey[key], record)
		}

		keys := make([]string, 0, len(byKey))
		for key, members := range byKey {
			if len(members) >= 2 {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)

		for _, key := range keys {
			members := byKey[key]
			sort.Slice(members, func(i, j int) bool { return members[i].Index < members[j].Index })
			groups = append(groups, DuplicateGroup{
				Source:  source,
				Field:   field,
				Value:   key,
				Members: members,
			})
		}
	}

	return groups
}

// duplicateKey derives the grouping key for a record under a duplicate
// field. Records missing any field the key needs are excluded from that
// grouping rather than lumped together.
func duplicateKey(field DuplicateField, record *models.NormalizedRecord) (string, bool) {
	switch field {
	case DuplicateByInvoiceRef:
		if record.InvoiceRef == "" {
			return "", false
		}
		return record.InvoiceRef, true
	case DuplicateByAmountDate:
		if !record.HasAmount() || !record.HasDate() {
			return "", false
		}
		return record.Amount.StringFixed(2) + "@" + record.Date.Format("2006-01-02"), true
	default:
		return "", false
	}
}
