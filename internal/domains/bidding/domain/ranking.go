package domain

import "sort"

// RankingResult separates rankable quotes from those excluded for currency
// mismatch. Excluded quotes keep a nil rank and are surfaced to the caller
// for warning logs.
type RankingResult struct {
	Ranked   []*Quote
	Excluded []*Quote
}

// ComputePriceRanks assigns dense price ranks to the active quotes of one
// RFQ. Ordering is total amount ascending, ties broken by earliest
// submission, then supplier id, so the outcome is deterministic for a given
// input set. Quotes in a currency other than the RFQ's are excluded rather
// than ranked. Non-active quotes are ignored entirely.
func ComputePriceRanks(rfqCurrency string, quotes []*Quote) RankingResult {
	var result RankingResult
	for _, q := range quotes {
		if !q.Status.Active() {
			continue
		}
		if q.Currency != rfqCurrency {
			q.PriceRank = nil
			result.Excluded = append(result.Excluded, q)
			continue
		}
		result.Ranked = append(result.Ranked, q)
	}
	sort.SliceStable(result.Ranked, func(i, j int) bool {
		a, b := result.Ranked[i], result.Ranked[j]
		if cmp := a.TotalAmount.Cmp(b.TotalAmount); cmp != 0 {
			return cmp < 0
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.SupplierOrgID < b.SupplierOrgID
	})
	for i, q := range result.Ranked {
		rank := i + 1
		q.PriceRank = &rank
	}
	return result
}
