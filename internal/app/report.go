package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
)

// Show prints the current rule tables, or the full rule history.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	manager := a.newManager(store)
	if opts.History {
		return a.showHistory(ctx, manager)
	}
	return a.showCurrent(ctx, manager)
}

func (a *App) showCurrent(ctx context.Context, manager ruleReader) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(writer, "BASE FEES")
	fmt.Fprintln(writer, "City\tCar\tScooter\tBike")
	for _, city := range domain.Cities {
		fmt.Fprintf(writer, "%s", city)
		for _, vehicle := range domain.VehicleTypes {
			rule, err := manager.CurrentBaseRule(ctx, city, vehicle)
			if err != nil {
				return err
			}
			if rule == nil || rule.Forbidden() {
				fmt.Fprint(writer, "\t-")
			} else {
				fmt.Fprintf(writer, "\t%s", rule.Fee.StringFixed(2))
			}
		}
		fmt.Fprintln(writer)
	}

	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "EXTRA FEES")
	fmt.Fprintln(writer, "ID\tVehicle\tCondition\tFee")
	for _, vehicle := range domain.VehicleTypes {
		rules, err := manager.CurrentExtraRules(ctx, vehicle)
		if err != nil {
			return err
		}
		for _, rule := range rules {
			fmt.Fprintf(writer, "%d\t%s\t%s\t%s\n", rule.ID, rule.Vehicle, condition(rule), feeText(rule.Fee))
		}
	}

	return writer.Flush()
}

func (a *App) showHistory(ctx context.Context, manager ruleReader) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	baseRules, err := manager.BaseRuleHistory(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(writer, "BASE FEES")
	fmt.Fprintln(writer, "ID\tCity\tVehicle\tValid from\tFee")
	for _, rule := range baseRules {
		fmt.Fprintf(writer, "%d\t%s\t%s\t%d\t%s\n",
			rule.ID, rule.City, rule.Vehicle, rule.ValidFrom.Unix(), feeText(rule.Fee))
	}

	extraRules, err := manager.ExtraRuleHistory(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "EXTRA FEES")
	fmt.Fprintln(writer, "ID\tVehicle\tCondition\tValid from\tValid until\tFee")
	for _, rule := range extraRules {
		until := "now"
		if rule.ValidUntil != nil {
			until = fmt.Sprintf("%d", rule.ValidUntil.Unix())
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%d\t%s\t%s\n",
			rule.ID, rule.Vehicle, condition(rule), rule.ValidFrom.Unix(), until, feeText(rule.Fee))
	}

	return writer.Flush()
}

// ruleReader is the read-only slice of the rule manager the reports need.
type ruleReader interface {
	CurrentBaseRule(ctx context.Context, city domain.City, vehicle domain.VehicleType) (*storage.BaseFeeRule, error)
	CurrentExtraRules(ctx context.Context, vehicle domain.VehicleType) ([]storage.ExtraFeeRule, error)
	BaseRuleHistory(ctx context.Context) ([]storage.BaseFeeRule, error)
	ExtraRuleHistory(ctx context.Context) ([]storage.ExtraFeeRule, error)
}

func condition(rule storage.ExtraFeeRule) string {
	if rule.Metric == domain.MetricPhenomenon {
		return rule.Value
	}
	return fmt.Sprintf("%s %s %s", rule.Metric, rule.ValueType, rule.Value)
}

func feeText(fee *decimal.Decimal) string {
	if fee == nil {
		return "forbidden"
	}
	return fee.StringFixed(2)
}

// Reset restores the built-in default rule set. Destructive.
func (a *App) Reset(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := a.newManager(store).ResetDefaults(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "The fee rules were reset")
	return nil
}

// Disable soft-disables an extra fee rule by ID.
func (a *App) Disable(ctx context.Context, id int64) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := a.newManager(store).DisableRule(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "Rule disabled")
	return nil
}
