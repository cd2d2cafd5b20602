package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/cuemby/tableside/pkg/board"
	"github.com/cuemby/tableside/pkg/catalog"
	"github.com/cuemby/tableside/pkg/types"
	"golang.org/x/text/message"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatPrice renders a price with the locale's digit grouping
func formatPrice(p *message.Printer, price types.Price) string {
	return p.Sprintf("%d ₫", int64(math.Round(price.Float64())))
}

func tableNames(tables []types.Table) string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func printReservations(w io.Writer, p *message.Printer, views []types.ReservationView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No reservations being served")
		return
	}

	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  [%s]  %s\n", v.ReservationCode, tableNames(v.Tables), board.StatusText(v))

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, o := range v.Orders {
			state := "served"
			if !o.Confirmed {
				state = "new"
			}
			fmt.Fprintf(tw, "  %s\t%s\tx%d\t%s\t%s\n", o.ID, o.Dish, o.Quantity, formatPrice(p, o.Price), state)
		}
		tw.Flush()
	}
}

func printPending(w io.Writer, p *message.Printer, j types.Journal, codes []string) {
	if len(codes) == 0 {
		fmt.Fprintln(w, "No pending dishes")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RESERVATION\tID\tDISH\tQTY\tPRICE")
	for _, code := range codes {
		for _, e := range j[code] {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", code, e.ID, e.Name, e.Quantity, formatPrice(p, e.Price))
		}
	}
	tw.Flush()
}

func printCatalog(w io.Writer, p *message.Printer, c *catalog.Catalog) {
	for i, cat := range c.Categories {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, cat.Name)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, d := range cat.Dishes {
			fmt.Fprintf(tw, "  %d\t%s\t%s\n", d.ID, d.Name, formatPrice(p, d.Price))
		}
		tw.Flush()
	}
}
