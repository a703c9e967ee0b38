// Package normalization turns raw factory reads into presented token models
// and chart series. Everything here is a pure derivation.
package normalization

import (
	"math"
	"time"

	"pumpcore/internal/domain"
	"pumpcore/internal/units"
)

// dateLayout matches the short numeric date the marketplace shows (M/D/YYYY).
const dateLayout = "1/2/2006"

// ImageResolver maps a content reference to a fetchable URL.
type ImageResolver interface {
	URL(ref string) string
}

// Normalizer builds TokenInfo records from contract reads.
type Normalizer struct {
	images ImageResolver
	loc    *time.Location
}

// NewNormalizer creates a Normalizer. A nil location means UTC.
func NewNormalizer(images ImageResolver, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{images: images, loc: loc}
}

// Normalize projects a tokens() tuple and the optional getTokenData() result
// into a TokenInfo. It returns nil when no tuple is available yet.
//
// Field mapping:
//   - supply, reserve, volumes = scaled / 10^18
//   - price = reserve / supply, 0 when supply is 0
//   - createdAt = creation timestamp formatted as M/D/YYYY
//   - imageUrl = resolved getTokenData image reference, "" when absent
func (n *Normalizer) Normalize(address string, raw *domain.RawTokenTuple, data *domain.TokenData) *domain.TokenInfo {
	if raw == nil {
		return nil
	}

	supply := units.FromScaled(raw.Supply)
	reserve := units.FromScaled(raw.Reserve)
	createdAt := units.Int64(raw.CreatedAt)

	info := &domain.TokenInfo{
		Address:         address,
		Creator:         raw.Creator.Hex(),
		Name:            raw.Name,
		Symbol:          raw.Symbol,
		Supply:          supply,
		Reserve:         reserve,
		K:               units.Int64(raw.K),
		CreatedAt:       FormatDate(createdAt, n.loc),
		CreatedAtUnix:   createdAt,
		TotalBuyVolume:  units.FromScaled(raw.TotalBuyVolume),
		TotalSellVolume: units.FromScaled(raw.TotalSellVolume),
		HolderCount:     units.Int64(raw.HolderCount),
		Price:           Price(reserve, supply),
	}

	if data != nil {
		info.Description = data.Description
		if n.images != nil {
			info.ImageURL = n.images.URL(data.ImageURI)
		}
	}

	return info
}

// Price derives the spot price as reserve per token. A zero supply, or any
// input that would produce a non-finite result, yields 0.
func Price(reserve, supply float64) float64 {
	if supply == 0 {
		return 0
	}
	p := reserve / supply
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}

// FormatDate renders unix seconds as M/D/YYYY in loc.
func FormatDate(unixSeconds int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(unixSeconds, 0).In(loc).Format(dateLayout)
}
