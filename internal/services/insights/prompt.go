package insights

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"StockCast/internal/domain/models"
)

// Summary renders predictions and historical means as the analysis block
// handed to the narrative generator. Items are listed alphabetically.
func Summary(predictions map[string][]models.PredictionRecord, ds *models.HistoricalDataset) string {
	items := make([]string, 0, len(predictions))
	for item := range predictions {
		items = append(items, item)
	}
	sort.Strings(items)

	var b strings.Builder
	b.WriteString("Inventory Prediction Analysis:\n\n")
	for _, item := range items {
		qty := make([]string, 0, len(predictions[item]))
		for _, p := range predictions[item] {
			qty = append(qty, strconv.Itoa(p.PredictedQuantity))
		}
		var avg float64
		if ds != nil {
			avg = ds.MeanQuantity(item)
		}
		fmt.Fprintf(&b, "Item: %s\n", item)
		fmt.Fprintf(&b, "Predicted quantities: [%s]\n", strings.Join(qty, ", "))
		fmt.Fprintf(&b, "Historical average: %.1f\n\n", avg)
	}
	return b.String()
}

// Prompt wraps a summary with the analysis instructions.
func Prompt(summary string) string {
	return "Analyze these inventory predictions:\n" + summary + `
Please provide:
1. Key insights about predicted demand
2. Potential risks or anomalies
3. Specific inventory recommendations
4. Factors that might affect these predictions
`
}
