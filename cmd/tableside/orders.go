package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/tableside/pkg/catalog"
	"github.com/cuemby/tableside/pkg/coordinator"
	"github.com/cuemby/tableside/pkg/events"
	"github.com/cuemby/tableside/pkg/types"
	"github.com/spf13/cobra"
)

func newServingCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serving",
		Short: "List reservations being served with their orders",
		Long: `List the reservations currently being served.

Orders the back office already knows about are shown as served; dishes
added here and not yet confirmed are shown as new.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			views, err := a.board.View(a.context(cmd))
			if err != nil {
				return fmt.Errorf("failed to load reservations: %w", err)
			}
			if a.format == "json" {
				return writeJSON(a.out, views)
			}
			printReservations(a.out, a.printer, views)
			return nil
		},
	}
	return cmd
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add RESERVATION --dish DISH=QTY [--dish DISH=QTY ...]",
		Short: "Add dishes to a reservation",
		Long: `Add dishes to a reservation. DISH is a catalog id or name.

Examples:
  # Two bowls of pho and an iced tea
  tableside add R1 --dish 1=2 --dish "Trà đá=1"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dishArgs, _ := cmd.Flags().GetStringArray("dish")

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			quantities, err := parseDishes(a.catalog, dishArgs)
			if err != nil {
				return err
			}
			selections := a.catalog.Select(quantities)

			ctx := a.context(cmd)
			if _, err := a.board.View(ctx); err != nil {
				return fmt.Errorf("failed to load reservations: %w", err)
			}

			sub := a.broker.Subscribe(events.EventMutationSucceeded, events.EventMutationFailed)
			defer a.broker.Unsubscribe(sub)

			m, err := a.coordinator.AddDish(ctx, args[0], selections)
			if errors.Is(err, coordinator.ErrNoSelection) {
				return fmt.Errorf("no dish with a positive quantity selected")
			}
			reportMutation(a, sub, err)
			if err != nil {
				return err
			}

			if a.format == "json" {
				return writeJSON(a.out, m.Entries)
			}
			for _, e := range m.Entries {
				fmt.Fprintf(a.out, "  + %s x%d (%s)\n", e.Name, e.Quantity, e.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayP("dish", "d", nil, "dish and quantity as DISH=QTY (repeatable)")
	_ = cmd.MarkFlagRequired("dish")
	return cmd
}

func newConfirmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm RESERVATION ORDER_ID",
		Short: "Mark a new dish as served",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := a.context(cmd)
			if _, err := a.board.View(ctx); err != nil {
				return fmt.Errorf("failed to load reservations: %w", err)
			}

			sub := a.broker.Subscribe(events.EventMutationSucceeded, events.EventMutationFailed)
			defer a.broker.Unsubscribe(sub)

			_, err = a.coordinator.ConfirmOrder(ctx, args[0], types.LineID(args[1]))
			reportMutation(a, sub, err)
			return err
		},
	}
}

func newCancelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel RESERVATION ORDER_ID",
		Short: "Remove a new dish from a reservation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := a.context(cmd)
			if _, err := a.board.View(ctx); err != nil {
				return fmt.Errorf("failed to load reservations: %w", err)
			}

			sub := a.broker.Subscribe(events.EventMutationSucceeded, events.EventMutationFailed)
			defer a.broker.Unsubscribe(sub)

			_, err = a.coordinator.CancelOrder(ctx, args[0], types.LineID(args[1]))
			reportMutation(a, sub, err)
			return err
		},
	}
}

func newPendingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending [RESERVATION]",
		Short: "Show dishes recorded locally and not yet confirmed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			j := a.journal.Load()
			var codes []string
			if len(args) == 1 {
				if _, ok := j[args[0]]; ok {
					codes = []string{args[0]}
				}
			} else {
				for code := range j {
					codes = append(codes, code)
				}
				sort.Strings(codes)
			}

			if a.format == "json" {
				out := types.Journal{}
				for _, code := range codes {
					out[code] = j[code]
				}
				return writeJSON(a.out, out)
			}
			printPending(a.out, a.printer, j, codes)
			return nil
		},
	}
}

// reportMutation prints the notification a mutation published
func reportMutation(a *app, sub events.Subscriber, err error) {
	e := notification(sub)
	if e == nil {
		return
	}
	if a.format == "json" && err == nil {
		return
	}
	if e.Type == events.EventMutationFailed {
		fmt.Fprintf(a.out, "✗ %s\n", e.Message)
		return
	}
	fmt.Fprintf(a.out, "✓ %s\n", e.Message)
}

// parseDishes turns DISH=QTY arguments into a dish-id to quantity map
func parseDishes(c *catalog.Catalog, dishArgs []string) (map[int]int, error) {
	quantities := make(map[int]int, len(dishArgs))
	for _, arg := range dishArgs {
		i := strings.LastIndex(arg, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid dish %q: want DISH=QTY", arg)
		}
		ref, qtyText := arg[:i], arg[i+1:]

		qty, err := strconv.Atoi(strings.TrimSpace(qtyText))
		if err != nil {
			return nil, fmt.Errorf("invalid quantity in %q: %w", arg, err)
		}

		if id, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil {
			quantities[id] += qty
			continue
		}
		dish, ok := c.FindByName(ref)
		if !ok {
			return nil, fmt.Errorf("unknown dish %q", ref)
		}
		quantities[dish.ID] += qty
	}

	if unknown := c.Unknown(quantities); len(unknown) > 0 {
		sort.Ints(unknown)
		return nil, fmt.Errorf("unknown dish ids %v", unknown)
	}
	return quantities, nil
}
