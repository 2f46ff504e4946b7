package analytics

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
)

// Reporter renders the analytics reports as fixed-width tables.
type Reporter struct {
	client *Client
	w      io.Writer
}

func NewReporter(client *Client, w io.Writer) *Reporter {
	return &Reporter{client: client, w: w}
}

// FormatPercent renders a ratio as a percentage with two decimals. Any
// undefined value (NaN, infinity, negative garbage from a zero or null
// denominator) renders as "0.00%", never an error.
func FormatPercent(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
		x = 0
	}
	return fmt.Sprintf("%.2f%%", x*100)
}

// Ratio divides guarding against a zero denominator.
func Ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func (r *Reporter) line(width int) {
	fmt.Fprintln(r.w, strings.Repeat("-", width))
}

// TopProductsWithConversion prints the top-N products by views together
// with each product's session-level conversion rate.
func (r *Reporter) TopProductsWithConversion(ctx context.Context, topN int) error {
	products, err := r.client.TopProductsByViews(ctx, topN)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.w, "\nTop %d Products (by views) & Conversion (session-level)\n", topN)
	r.line(72)
	if len(products) == 0 {
		fmt.Fprintln(r.w, "No products found.")
		r.line(72)
		return nil
	}

	fmt.Fprintf(r.w, "%-6s %-20s %10s %14s\n", "Rank", "ProductID", "Views", "Conversion")
	r.line(72)
	for i, product := range products {
		conv, err := r.client.ProductConversion(ctx, product.ProductID)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.w, "%-6d %-20s %10d %14s\n",
			i+1, product.ProductID, product.Views, FormatPercent(conv.Rate))
	}
	r.line(72)
	return nil
}

// TopCustomers prints the top-N users by purchase count.
func (r *Reporter) TopCustomers(ctx context.Context, topN int) error {
	customers, err := r.client.TopCustomersByPurchases(ctx, topN)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.w, "\nTop %d Customers by Purchases\n", topN)
	r.line(48)
	if len(customers) == 0 {
		fmt.Fprintln(r.w, "No customers found.")
		r.line(48)
		return nil
	}

	fmt.Fprintf(r.w, "%-6s %-16s %10s\n", "Rank", "UserID", "Purchases")
	r.line(48)
	for i, customer := range customers {
		fmt.Fprintf(r.w, "%-6d %-16s %10d\n", i+1, customer.UserID, customer.Purchases)
	}
	r.line(48)
	return nil
}

// PathsBeforePurchase prints the ranked two-step event-type patterns
// preceding purchases, with each pattern's share of the listed total.
func (r *Reporter) PathsBeforePurchase(ctx context.Context, topK int, productID *string) error {
	patterns, err := r.client.PathsBeforePurchase(ctx, topK, productID)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("\nTwo-Step Patterns Before Purchase  Top %d", topK)
	if productID != nil {
		title += fmt.Sprintf("  [Product=%s]", *productID)
	}
	fmt.Fprintln(r.w, title)
	r.line(84)
	if len(patterns) == 0 {
		fmt.Fprintln(r.w, "No paths found.")
		r.line(84)
		return nil
	}

	var total int64
	for _, p := range patterns {
		total += p.Occurrences
	}

	fmt.Fprintf(r.w, "%-24s %-24s %10s %10s\n", "Before 2", "Before 1", "Count", "Share")
	r.line(84)
	for _, p := range patterns {
		fmt.Fprintf(r.w, "%-24s %-24s %10d %10s\n",
			orNA(p.StepBefore2), orNA(p.StepBefore1), p.Occurrences,
			FormatPercent(Ratio(p.Occurrences, total)))
	}
	r.line(84)
	return nil
}

// Funnel prints the strict cohort funnel with per-step and cumulative
// conversion.
func (r *Reporter) Funnel(ctx context.Context, productID *string) error {
	counts, err := r.client.Funnel(ctx, productID)
	if err != nil {
		return err
	}

	title := "\nFunnel (cohort): View -> Click -> AddToCart -> Purchase"
	if productID != nil {
		title += fmt.Sprintf(" [Product=%s]", *productID)
	}
	fmt.Fprintln(r.w, title)
	r.line(80)
	fmt.Fprintf(r.w, "%-20s %12s %14s %14s\n", "Stage", "Sessions", "Step Conv.", "Cumulative")
	r.line(80)
	fmt.Fprintf(r.w, "%-20s %12d %14s %14s\n", "View", counts.ViewSessions, "-", "-")
	fmt.Fprintf(r.w, "%-20s %12d %14s %14s\n", "Click", counts.ClickSessions,
		FormatPercent(Ratio(counts.ClickSessions, counts.ViewSessions)),
		FormatPercent(Ratio(counts.ClickSessions, counts.ViewSessions)))
	fmt.Fprintf(r.w, "%-20s %12d %14s %14s\n", "AddToCart", counts.CartSessions,
		FormatPercent(Ratio(counts.CartSessions, counts.ClickSessions)),
		FormatPercent(Ratio(counts.CartSessions, counts.ViewSessions)))
	fmt.Fprintf(r.w, "%-20s %12d %14s %14s\n", "Purchase", counts.PurchaseSessions,
		FormatPercent(Ratio(counts.PurchaseSessions, counts.CartSessions)),
		FormatPercent(Ratio(counts.PurchaseSessions, counts.ViewSessions)))
	r.line(80)
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
