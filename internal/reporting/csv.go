package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders run rows as CSV string.
func RenderCSV(rows []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,asset,mode,scenario,days,trad_return_pct,prot_return_pct,advantage_pct,")
	sb.WriteString("trad_liquidation_day,prot_liquidation_day,rebalances,leverage_ups\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%.6f,%.6f,%.6f,%s,%s,%d,%d\n",
			r.RunID,
			r.Asset,
			r.Mode,
			r.Scenario,
			r.Days,
			r.TraditionalReturnPct,
			r.ProtectedReturnPct,
			r.AdvantagePct,
			csvDay(r.TraditionalLiquidationDay),
			csvDay(r.ProtectedLiquidationDay),
			r.Rebalances,
			r.LeverageUps,
		))
	}

	return sb.String()
}

func csvDay(day *int) string {
	if day == nil {
		return ""
	}
	return fmt.Sprintf("%d", *day)
}
