package httpapi

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
)

// renderCurrentRules builds the mode=print HTML: the effective base fee
// matrix and the currently active extra rules.
func (s *Server) renderCurrentRules(ctx context.Context) (string, error) {
	b := strings.Builder{}

	b.WriteString(`<h3>BASE FEES</h3><table style="border-spacing:10px"><tr><th></th>`)
	for _, vehicle := range domain.VehicleTypes {
		fmt.Fprintf(&b, "<th>%s</th>", vehicle)
	}
	b.WriteString("</tr>")

	for _, city := range domain.Cities {
		fmt.Fprintf(&b, "<tr><td><b>%s</b></td>", city)
		for _, vehicle := range domain.VehicleTypes {
			rule, err := s.manager.CurrentBaseRule(ctx, city, vehicle)
			if err != nil {
				return "", err
			}
			if rule != nil && !rule.Forbidden() {
				fmt.Fprintf(&b, "<td>%s</td>", rule.Fee.StringFixed(2))
			} else {
				b.WriteString("<td>-</td>")
			}
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table><br>")

	b.WriteString(`<h3>EXTRA FEES</h3><table style="border-spacing:10px">` +
		"<tr><th>ID</th><th>vehicle type</th><th>condition</th><th>fee</th></tr>")
	for _, vehicle := range domain.VehicleTypes {
		rules, err := s.manager.CurrentExtraRules(ctx, vehicle)
		if err != nil {
			return "", err
		}
		for _, rule := range rules {
			fmt.Fprintf(&b, "<tr><td>%d</td><td>%s</td><td>%s</td>", rule.ID, rule.Vehicle, conditionCell(rule))
			b.WriteString(feeCell(rule.Fee))
			b.WriteString("</tr>")
		}
	}
	b.WriteString("</table>")

	return b.String(), nil
}

// renderRuleHistory builds the mode=history HTML: every rule version ever
// recorded, newest first.
func (s *Server) renderRuleHistory(ctx context.Context) (string, error) {
	b := strings.Builder{}

	baseRules, err := s.manager.BaseRuleHistory(ctx)
	if err != nil {
		return "", err
	}

	b.WriteString(`<h3>BASE FEES</h3><table style="border-spacing:10px">` +
		"<tr><th>ID</th><th>city</th><th>vehicle type</th><th>valid from</th><th>fee</th></tr>")
	for _, rule := range baseRules {
		fmt.Fprintf(&b, "<tr><td>%d</td><td>%s</td><td>%s</td><td>%d</td>",
			rule.ID, rule.City, rule.Vehicle, rule.ValidFrom.Unix())
		b.WriteString(feeCell(rule.Fee))
		b.WriteString("</tr>")
	}
	b.WriteString("</table><br>")

	extraRules, err := s.manager.ExtraRuleHistory(ctx)
	if err != nil {
		return "", err
	}

	b.WriteString(`<h3>EXTRA FEES</h3><table style="border-spacing:10px">` +
		"<tr><th>ID</th><th>vehicle type</th><th>condition</th>" +
		"<th>valid from</th><th>valid until</th><th>fee</th></tr>")
	for _, rule := range extraRules {
		fmt.Fprintf(&b, "<tr><td>%d</td><td>%s</td><td>%s</td><td>%d</td>",
			rule.ID, rule.Vehicle, conditionCell(rule), rule.ValidFrom.Unix())
		if rule.ValidUntil != nil {
			fmt.Fprintf(&b, "<td>%d</td>", rule.ValidUntil.Unix())
		} else {
			b.WriteString("<td><b>now</b></td>")
		}
		b.WriteString(feeCell(rule.Fee))
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")

	return b.String(), nil
}

func conditionCell(rule storage.ExtraFeeRule) string {
	if rule.Metric == domain.MetricPhenomenon {
		return html.EscapeString(rule.Value)
	}
	return fmt.Sprintf("%s %s %s", rule.Metric, rule.ValueType, rule.Value)
}

func feeCell(fee *decimal.Decimal) string {
	if fee == nil {
		return "<td><b>forbidden</b></td>"
	}
	return fmt.Sprintf("<td>%s</td>", fee.StringFixed(2))
}
