package gateway

import (
	"fmt"
	"sort"

	"StockLens/internal/domain/models"
)

// normalize validates every point, sorts ascending and rejects duplicate
// timestamps. Points outside rng are dropped after validation so a corrupt bar
// anywhere in the payload fails the whole fetch.
func normalize(points []models.PricePoint, rng models.DateRange) ([]models.PricePoint, error) {
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })

	out := make([]models.PricePoint, 0, len(points))
	for i, p := range points {
		if i > 0 && !points[i-1].Timestamp.Before(p.Timestamp) {
			return nil, fmt.Errorf("duplicate timestamp %s", p.Timestamp.Format("2006-01-02 15:04:05"))
		}
		if rng.Contains(p.Timestamp) {
			out = append(out, p)
		}
	}
	return out, nil
}
