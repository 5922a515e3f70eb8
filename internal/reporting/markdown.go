package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Solvency Comparison Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d | Assets: %d\n\n", r.RunCount, r.AssetCount))

	// Run table
	sb.WriteString("## Runs\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Asset | Mode | Scenario | Days | Trad Return | Prot Return | Advantage | Trad Liq | Prot Liq | Rebalances | LevUps |\n")
		sb.WriteString("|-----|-------|------|----------|------|-------------|-------------|-----------|----------|----------|------------|--------|\n")
		for _, row := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %.2f%% | %.2f%% | %.2f%% | %s | %s | %d | %d |\n",
				row.RunID, row.Asset, row.Mode, row.Scenario, row.Days,
				row.TraditionalReturnPct, row.ProtectedReturnPct, row.AdvantagePct,
				liquidationLabel(row.TraditionalLiquidationDay),
				liquidationLabel(row.ProtectedLiquidationDay),
				row.Rebalances, row.LeverageUps))
		}
	} else {
		sb.WriteString("No runs stored.\n")
	}
	sb.WriteString("\n")

	// Advantage distribution
	sb.WriteString("## Protected Advantage\n\n")
	if r.Advantage.Runs > 0 {
		a := r.Advantage
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Mean | %.2f%% |\n", a.AdvantageMean))
		sb.WriteString(fmt.Sprintf("| Median | %.2f%% |\n", a.AdvantageMedian))
		sb.WriteString(fmt.Sprintf("| P10 | %.2f%% |\n", a.AdvantageP10))
		sb.WriteString(fmt.Sprintf("| P90 | %.2f%% |\n", a.AdvantageP90))
		sb.WriteString(fmt.Sprintf("| Min | %.2f%% |\n", a.AdvantageMin))
		sb.WriteString(fmt.Sprintf("| Max | %.2f%% |\n", a.AdvantageMax))
		sb.WriteString(fmt.Sprintf("| Stddev | %.2f |\n", a.AdvantageStddev))
		sb.WriteString(fmt.Sprintf("| Traditional liquidations | %d |\n", a.TraditionalLiquidations))
		sb.WriteString(fmt.Sprintf("| Protected liquidations | %d |\n", a.ProtectedLiquidations))
	} else {
		sb.WriteString("No advantage statistics available.\n")
	}
	sb.WriteString("\n")

	// Event totals
	sb.WriteString("## Events\n\n")
	sb.WriteString("| Type | Count |\n")
	sb.WriteString("|------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Rebalance down | %d |\n", r.Events.Rebalances))
	sb.WriteString(fmt.Sprintf("| Leverage up | %d |\n", r.Events.LeverageUps))
	sb.WriteString(fmt.Sprintf("| Liquidation | %d |\n", r.Events.Liquidations))
	sb.WriteString("\n")

	return sb.String()
}

func liquidationLabel(day *int) string {
	if day == nil {
		return "-"
	}
	return fmt.Sprintf("day %d", *day)
}
