// Package forecast produces placeholder demand forecasts for the demo
// dashboard. The model is deliberately naive: historical outbound volume
// plus weekly seasonality, a small upward trend, and random noise.
package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"supplyline/internal/store"
)

const (
	historyWindowDays = 90
	maxItems          = 10
	modelVersion      = "v1.0-demo"
)

// HistoryStore is the read surface the forecaster needs.
type HistoryStore interface {
	ListInventory(ctx context.Context) ([]store.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id int64) (store.InventoryItem, error)
	OutboundQuantitySince(ctx context.Context, itemID int64, since time.Time) (int, error)
}

type DayForecast struct {
	Date            string  `json:"date"`
	PredictedDemand float64 `json:"predicted_demand"`
	Confidence      float64 `json:"confidence"`
}

type ItemForecast struct {
	ItemID         int64         `json:"item_id"`
	ItemName       string        `json:"item_name"`
	SKU            string        `json:"sku"`
	CurrentStock   int           `json:"current_stock"`
	AvgDailyDemand float64       `json:"avg_daily_demand"`
	Forecast       []DayForecast `json:"forecast"`
	ForecastPeriod string        `json:"total_forecast_period"`
	ModelAccuracy  float64       `json:"model_accuracy"`
}

type Report struct {
	Forecasts    []ItemForecast `json:"forecasts"`
	GeneratedAt  string         `json:"generated_at"`
	ModelVersion string         `json:"model_version"`
}

// Service generates demand forecasts. The random source is injected and
// guarded so concurrent HTTP requests do not race on it.
type Service struct {
	store HistoryStore

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(st HistoryStore, rng *rand.Rand) *Service {
	return &Service{store: st, rng: rng}
}

// DemandForecast forecasts days of demand for one item (itemID > 0) or the
// first ten items.
func (s *Service) DemandForecast(ctx context.Context, itemID int64, days int) (Report, error) {
	if days <= 0 {
		days = 30
	}

	var items []store.InventoryItem
	if itemID > 0 {
		item, err := s.store.GetInventoryItem(ctx, itemID)
		if err != nil {
			return Report{}, err
		}
		items = []store.InventoryItem{item}
	} else {
		all, err := s.store.ListInventory(ctx)
		if err != nil {
			return Report{}, err
		}
		if len(all) > maxItems {
			all = all[:maxItems]
		}
		items = all
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -historyWindowDays)
	report := Report{
		Forecasts:    make([]ItemForecast, 0, len(items)),
		GeneratedAt:  now.Format(time.RFC3339),
		ModelVersion: modelVersion,
	}

	for _, item := range items {
		outbound, err := s.store.OutboundQuantitySince(ctx, item.ID, since)
		if err != nil {
			return Report{}, fmt.Errorf("outbound history for item %d: %w", item.ID, err)
		}
		avgDaily := float64(outbound) / historyWindowDays
		if outbound == 0 {
			avgDaily = 1
		}

		entry := ItemForecast{
			ItemID:         item.ID,
			ItemName:       item.Name,
			SKU:            item.SKU,
			CurrentStock:   item.CurrentStock,
			AvgDailyDemand: round2(avgDaily),
			ForecastPeriod: fmt.Sprintf("%d days", days),
		}

		s.mu.Lock()
		for day := 0; day < days; day++ {
			seasonal := 1 + 0.2*math.Sin(2*math.Pi*float64(day)/7)
			trend := 1 + float64(day)*0.01
			noise := 0.8 + s.rng.Float64()*0.4
			predicted := avgDaily * seasonal * trend * noise
			if predicted < 0 {
				predicted = 0
			}
			// The dashboard only renders the first week.
			if day < 7 {
				entry.Forecast = append(entry.Forecast, DayForecast{
					Date:            now.AddDate(0, 0, day).Format("2006-01-02"),
					PredictedDemand: round2(predicted),
					Confidence:      round2(0.75 + s.rng.Float64()*0.20),
				})
			}
		}
		entry.ModelAccuracy = round2(0.80 + s.rng.Float64()*0.15)
		s.mu.Unlock()

		report.Forecasts = append(report.Forecasts, entry)
	}
	return report, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
