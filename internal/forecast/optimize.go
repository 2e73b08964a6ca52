package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	velocityWindowDays = 30
	leadTimeDays       = 7
	safetyFactor       = 1.5
	carryingCostRate   = 0.1
	maxRecommendations = 10
)

// Recommendation is one per-item stock-level recommendation.
type Recommendation struct {
	ItemID          int64   `json:"item_id"`
	ItemName        string  `json:"item_name"`
	SKU             string  `json:"sku"`
	CurrentStock    int     `json:"current_stock"`
	OptimalStock    int     `json:"optimal_stock"`
	ReorderPoint    int     `json:"reorder_point"`
	StockStatus     string  `json:"stock_status"`
	Action          string  `json:"recommended_action"`
	Priority        string  `json:"priority"`
	MonthlyVelocity int     `json:"monthly_velocity"`
	CostImpact      float64 `json:"cost_impact"`
	Recommendation  string  `json:"recommendation"`
}

type OptimizationSummary struct {
	TotalItemsAnalyzed   int     `json:"total_items_analyzed"`
	HighPriorityActions  int     `json:"high_priority_actions"`
	PotentialCostSavings float64 `json:"potential_cost_savings"`
	RiskMitigationValue  float64 `json:"risk_mitigation_value"`
}

type OptimizationReport struct {
	Recommendations []Recommendation    `json:"recommendations"`
	Summary         OptimizationSummary `json:"summary"`
	GeneratedAt     string              `json:"generated_at"`
}

// Optimization derives target stock levels from trailing 30-day outbound
// velocity: a 30-day supply plus lead-time safety stock. Items below the
// derived reorder point rank as shortage risk, items far above the optimal
// level as excess carrying cost.
func (s *Service) Optimization(ctx context.Context) (OptimizationReport, error) {
	items, err := s.store.ListInventory(ctx)
	if err != nil {
		return OptimizationReport{}, err
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -velocityWindowDays)
	recs := make([]Recommendation, 0, len(items))

	for _, item := range items {
		outbound, err := s.store.OutboundQuantitySince(ctx, item.ID, since)
		if err != nil {
			return OptimizationReport{}, fmt.Errorf("outbound history for item %d: %w", item.ID, err)
		}
		daily := float64(outbound) / velocityWindowDays
		safety := daily * leadTimeDays * safetyFactor
		optimal := daily*velocityWindowDays + safety
		reorderAt := daily*leadTimeDays + safety

		current := float64(item.CurrentStock)
		rec := Recommendation{
			ItemID:          item.ID,
			ItemName:        item.Name,
			SKU:             item.SKU,
			CurrentStock:    item.CurrentStock,
			OptimalStock:    int(math.Round(optimal)),
			ReorderPoint:    int(math.Round(reorderAt)),
			MonthlyVelocity: outbound,
			StockStatus:     "optimal",
			Action:          "maintain",
			Priority:        "low",
		}
		switch {
		case current < reorderAt:
			rec.StockStatus = "low"
			rec.Action = "reorder"
			rec.Priority = "high"
			shortageRisk := (reorderAt - current) / math.Max(reorderAt, 1)
			rec.CostImpact = round2(shortageRisk * item.SellingPrice * daily * leadTimeDays)
		case current > optimal*1.5:
			rec.StockStatus = "excess"
			rec.Action = "reduce"
			rec.Priority = "medium"
			rec.CostImpact = round2(-(current - optimal) * item.UnitCost * carryingCostRate)
		}
		rec.Recommendation = recommendationText(rec.Action, rec.CurrentStock, rec.OptimalStock)
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		ri, rj := priorityRank(recs[i].Priority), priorityRank(recs[j].Priority)
		if ri != rj {
			return ri > rj
		}
		return math.Abs(recs[i].CostImpact) > math.Abs(recs[j].CostImpact)
	})

	report := OptimizationReport{
		Summary:     OptimizationSummary{TotalItemsAnalyzed: len(items)},
		GeneratedAt: now.Format(time.RFC3339),
	}
	for _, rec := range recs {
		if rec.Priority == "high" {
			report.Summary.HighPriorityActions++
		}
		if rec.CostImpact < 0 {
			report.Summary.PotentialCostSavings += -rec.CostImpact
		} else {
			report.Summary.RiskMitigationValue += rec.CostImpact
		}
	}
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	report.Recommendations = recs
	return report, nil
}

func priorityRank(p string) int {
	switch p {
	case "high":
		return 3
	case "medium":
		return 2
	default:
		return 1
	}
}

func recommendationText(action string, current, optimal int) string {
	switch action {
	case "reorder":
		return fmt.Sprintf("Stock is below reorder point. Consider ordering %d units to reach optimal level.", optimal-current)
	case "reduce":
		return fmt.Sprintf("Excess inventory detected. Consider reducing by %d units to optimize carrying costs.", current-optimal)
	default:
		return "Current stock level is optimal. Continue monitoring."
	}
}

// InventoryTurnover estimates annualized turnover from the trailing month's
// revenue against the current inventory valuation. COGS is approximated as
// 70% of revenue.
func (s *Service) InventoryTurnover(ctx context.Context, monthlyRevenue float64) (float64, error) {
	items, err := s.store.ListInventory(ctx)
	if err != nil {
		return 0, err
	}
	var totalValue float64
	for _, item := range items {
		totalValue += float64(item.CurrentStock) * item.UnitCost
	}
	if totalValue <= 0 {
		return 0, nil
	}
	annualCOGS := monthlyRevenue * 0.7 * 12
	return round2(annualCOGS / totalValue), nil
}
