package normalization

import (
	"sort"

	"pumpcore/internal/domain"
)

// ObservedPricePoints turns polled snapshots into observed price points.
// Snapshots need not be sorted.
//
// Aggregation for same (token, timestamp_ms):
//   - price = LAST(price) in input order
func ObservedPricePoints(snapshots []*domain.TokenSnapshot) []*domain.PricePoint {
	if len(snapshots) == 0 {
		return nil
	}

	type key struct {
		token string
		ts    int64
	}
	byKey := make(map[key]*domain.PricePoint, len(snapshots))
	order := make([]key, 0, len(snapshots))

	for _, s := range snapshots {
		if s == nil {
			continue
		}
		k := key{s.Info.Address, s.ObservedAt}
		if p, ok := byKey[k]; ok {
			p.Price = s.Info.Price // LAST(price)
			continue
		}
		byKey[k] = &domain.PricePoint{
			Token:       s.Info.Address,
			TimestampMs: s.ObservedAt,
			Price:       s.Info.Price,
			Source:      domain.PriceSourceObserved,
		}
		order = append(order, k)
	}

	result := make([]*domain.PricePoint, 0, len(order))
	for _, k := range order {
		result = append(result, byKey[k])
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Token != result[j].Token {
			return result[i].Token < result[j].Token
		}
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result
}
