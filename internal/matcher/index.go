package matcher

import (
	"sort"

	"invoice-reconciliation-service/internal/models"
)

// BlockingIndex holds one side's records keyed for fast candidate lookup. A
// record from the opposite side is a candidate when it shares a vendor
// identifier with an indexed record, or, when either side lacks a vendor,
// when both fall into the same whole-unit amount bucket. Records carrying
// neither key are candidates against the full opposite population.
type BlockingIndex struct {
	all []*models.NormalizedRecord

	// vendorBuckets groups indexed records by normalized vendor identifier.
	vendorBuckets map[string][]*models.NormalizedRecord

	// amountBuckets groups every amount-bearing indexed record by
	// whole-unit amount bucket.
	amountBuckets map[string][]*models.NormalizedRecord

	// noVendorAmountBuckets groups amount-bearing records that lack a
	// vendor identifier, also by whole-unit bucket.
	noVendorAmountBuckets map[string][]*models.NormalizedRecord

	// unkeyed holds records with neither vendor nor amount. They reach
	// every probe.
	unkeyed []*models.NormalizedRecord
}

// NewBlockingIndex builds an index over one side's normalized records.
func NewBlockingIndex(records []*models.NormalizedRecord) *BlockingIndex {
	idx := &BlockingIndex{
		all:                   records,
		vendorBuckets:         make(map[string][]*models.NormalizedRecord),
		amountBuckets:         make(map[string][]*models.NormalizedRecord),
		noVendorAmountBuckets: make(map[string][]*models.NormalizedRecord),
	}

	for _, record := range records {
		hasVendor := record.VendorID != ""
		hasAmount := record.HasAmount()

		if hasVendor {
			idx.vendorBuckets[record.VendorID] = append(idx.vendorBuckets[record.VendorID], record)
		}
		if hasAmount {
			bucket := amountBucket(record)
			idx.amountBuckets[bucket] = append(idx.amountBuckets[bucket], record)
			if !hasVendor {
				idx.noVendorAmountBuckets[bucket] = append(idx.noVendorAmountBuckets[bucket], record)
			}
		}
		if !hasVendor && !hasAmount {
			idx.unkeyed = append(idx.unkeyed, record)
		}
	}

	return idx
}

// Size returns the number of indexed records.
func (idx *BlockingIndex) Size() int {
	return len(idx.all)
}

// amountBucket returns the whole-unit bucket key for an amount-bearing
// record.
func amountBucket(record *models.NormalizedRecord) string {
	return record.Amount.Round(0).String()
}

// Candidates returns the indexed records eligible to be scored against the
// probe record, deduplicated and sorted by original row position.
func (idx *BlockingIndex) Candidates(probe *models.NormalizedRecord) []*models.NormalizedRecord {
	hasVendor := probe.VendorID != ""
	hasAmount := probe.HasAmount()

	// A probe with no blocking key at all cannot be narrowed; every
	// indexed record stays eligible.
	if !hasVendor && !hasAmount {
		out := make([]*models.NormalizedRecord, len(idx.all))
		copy(out, idx.all)
		sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
		return out
	}

	seen := make(map[int]bool)
	var out []*models.NormalizedRecord
	add := func(records []*models.NormalizedRecord) {
		for _, record := range records {
			if !seen[record.Index] {
				seen[record.Index] = true
				out = append(out, record)
			}
		}
	}

	if hasVendor {
		add(idx.vendorBuckets[probe.VendorID])
		if hasAmount {
			// Vendor-less records on the other side can still pair
			// with this probe through the amount fallback.
			add(idx.noVendorAmountBuckets[amountBucket(probe)])
		}
	} else {
		add(idx.amountBuckets[amountBucket(probe)])
	}

	// Records carrying neither key are never excluded by blocking.
	add(idx.unkeyed)

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
