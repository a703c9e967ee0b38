package normalization

import (
	"math"
	"sort"
	"time"

	"pumpcore/internal/domain"
	"pumpcore/internal/units"
)

// SyntheticChartDays is the length of the placeholder chart.
const SyntheticChartDays = 30

// SeriesChart converts stored or contract price points into a chart,
// ordered by timestamp. Points for other tokens are ignored.
func SeriesChart(token string, source domain.PriceSource, points []*domain.PricePoint, loc *time.Location) domain.Chart {
	if loc == nil {
		loc = time.UTC
	}

	chart := domain.Chart{Token: token, Source: source, Points: make([]domain.ChartPoint, 0, len(points))}
	for _, p := range points {
		if p == nil || p.Token != token {
			continue
		}
		chart.Points = append(chart.Points, domain.ChartPoint{
			Date:        time.UnixMilli(p.TimestampMs).In(loc).Format(dateLayout),
			TimestampMs: p.TimestampMs,
			Price:       p.Price,
		})
	}

	sort.SliceStable(chart.Points, func(i, j int) bool {
		return chart.Points[i].TimestampMs < chart.Points[j].TimestampMs
	})

	return chart
}

// ContractChart converts getPriceHistory entries (seconds, scaled price).
func ContractChart(token string, raw []domain.RawPricePoint, loc *time.Location) domain.Chart {
	return SeriesChart(token, domain.PriceSourceContract, ContractPricePoints(token, raw), loc)
}

// ContractPricePoints scales getPriceHistory entries into price points.
func ContractPricePoints(token string, raw []domain.RawPricePoint) []*domain.PricePoint {
	points := make([]*domain.PricePoint, 0, len(raw))
	for _, r := range raw {
		points = append(points, &domain.PricePoint{
			Token:       token,
			TimestampMs: units.Int64(r.Timestamp) * 1000,
			Price:       finite(units.FromScaled(r.Price)),
			Source:      domain.PriceSourceContract,
		})
	}
	return points
}

// ObservedChart converts points recorded by ingestion.
func ObservedChart(token string, points []*domain.PricePoint, loc *time.Location) domain.Chart {
	return SeriesChart(token, domain.PriceSourceObserved, points, loc)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// SyntheticChart generates the placeholder series shown when no history
// exists: one point per day for the last 30 days ending at now, priced at
// price * (1 + sin(i/5) * 0.1). It carries no information about real trades.
func SyntheticChart(token string, price float64, now time.Time, loc *time.Location) domain.Chart {
	if loc == nil {
		loc = time.UTC
	}

	chart := domain.Chart{
		Token:  token,
		Source: domain.PriceSourceSynthetic,
		Points: make([]domain.ChartPoint, SyntheticChartDays),
	}
	for i := 0; i < SyntheticChartDays; i++ {
		at := now.Add(-time.Duration(SyntheticChartDays-1-i) * 24 * time.Hour)
		chart.Points[i] = domain.ChartPoint{
			Date:        at.In(loc).Format(dateLayout),
			TimestampMs: at.UnixMilli(),
			Price:       price * (1 + math.Sin(float64(i)/5)*0.1),
		}
	}
	return chart
}
