// Package analytics runs read-only aggregation queries over the loaded
// graph and renders tabular reports.
package analytics

import (
	"context"
	"fmt"

	"github.com/ecom-graph/backend/internal/graph/neo4j"
	"github.com/ecom-graph/backend/pkg/utils"
)

// Reader is the read-only slice of the store client.
type Reader interface {
	ReadRows(ctx context.Context, query string, params map[string]any) ([]neo4j.Row, error)
}

// Cache stores finished report payloads keyed by query fingerprint.
// A nil Cache disables caching entirely.
type Cache interface {
	GetReport(ctx context.Context, key string, out any) (bool, error)
	SetReport(ctx context.Context, key string, value any) error
}

type Client struct {
	reader Reader
	cache  Cache
}

func NewClient(reader Reader, cache Cache) *Client {
	return &Client{reader: reader, cache: cache}
}

type ProductViews struct {
	ProductID string `json:"product_id"`
	Views     int64  `json:"views"`
}

type Conversion struct {
	SessionsSeen   int64   `json:"sessions_seen"`
	SessionsBought int64   `json:"sessions_bought"`
	Rate           float64 `json:"conversion_rate"`
}

type CustomerPurchases struct {
	UserID    string   `json:"user_id"`
	Purchases int64    `json:"purchases"`
	Products  []string `json:"products"`
}

// PathPattern is one ranked pair of event types occurring three and two
// NEXT-steps before a purchase.
type PathPattern struct {
	StepBefore2 string `json:"step_before_2"`
	StepBefore1 string `json:"step_before_1"`
	Occurrences int64  `json:"occurrences"`
}

type FunnelCounts struct {
	ViewSessions     int64 `json:"view_sessions"`
	ClickSessions    int64 `json:"click_sessions"`
	CartSessions     int64 `json:"cart_sessions"`
	PurchaseSessions int64 `json:"purchase_sessions"`
}

// TopProductsByViews ranks products by how many events reference them.
func (c *Client) TopProductsByViews(ctx context.Context, topN int) ([]ProductViews, error) {
	var out []ProductViews
	key := utils.Fingerprint("top_products", fmt.Sprint(topN))
	if c.cacheGet(ctx, key, &out) {
		return out, nil
	}

	rows, err := c.reader.ReadRows(ctx, `
		MATCH (:Event)-[:ABOUT]->(p:Product)
		RETURN p.product_id AS pid, count(*) AS views
		ORDER BY views DESC
		LIMIT $n
	`, map[string]any{"n": topN})
	if err != nil {
		return nil, fmt.Errorf("top products query failed: %w", err)
	}

	for _, row := range rows {
		out = append(out, ProductViews{
			ProductID: asString(row["pid"]),
			Views:     asInt64(row["views"]),
		})
	}

	c.cacheSet(ctx, key, out)
	return out, nil
}

// ProductConversion computes the session-level conversion rate for one
// product: of the sessions that viewed it, the fraction that later
// produced a purchase event about it. The rate is always in [0, 1] and is
// zero when no session viewed the product.
func (c *Client) ProductConversion(ctx context.Context, productID string) (Conversion, error) {
	var out Conversion
	key := utils.Fingerprint("product_conversion", productID)
	if c.cacheGet(ctx, key, &out) {
		return out, nil
	}

	rows, err := c.reader.ReadRows(ctx, `
		MATCH (p:Product {product_id: $pid})
		MATCH (s:Session)-[:CONTAINS]->(:Event)-[:ABOUT]->(p)
		WITH p, collect(DISTINCT s) AS viewed
		UNWIND viewed AS s
		OPTIONAL MATCH (s)-[:CONTAINS]->(e:Event)-[:ABOUT]->(p)
		WHERE (e)-[:RESULTED_IN]->(:Outcome)
		WITH viewed, s, CASE WHEN count(e) > 0 THEN 1 ELSE 0 END AS bought
		RETURN size(viewed) AS sessions_seen,
		       sum(bought) AS sessions_bought,
		       CASE WHEN size(viewed) = 0 THEN 0.0
		            ELSE 1.0 * sum(bought) / size(viewed) END AS conversion_rate
	`, map[string]any{"pid": productID})
	if err != nil {
		return Conversion{}, fmt.Errorf("conversion query failed: %w", err)
	}
	if len(rows) == 0 {
		return Conversion{}, nil
	}

	out = Conversion{
		SessionsSeen:   asInt64(rows[0]["sessions_seen"]),
		SessionsBought: asInt64(rows[0]["sessions_bought"]),
		Rate:           asFloat64(rows[0]["conversion_rate"]),
	}

	c.cacheSet(ctx, key, out)
	return out, nil
}

// TopCustomersByPurchases ranks users by purchase event count, with the
// distinct set of products they bought.
func (c *Client) TopCustomersByPurchases(ctx context.Context, topN int) ([]CustomerPurchases, error) {
	var out []CustomerPurchases
	key := utils.Fingerprint("top_customers", fmt.Sprint(topN))
	if c.cacheGet(ctx, key, &out) {
		return out, nil
	}

	rows, err := c.reader.ReadRows(ctx, `
		MATCH (u:User)-[:STARTED]->(:Session)-[:CONTAINS]->(e:Event)-[:RESULTED_IN]->(:Outcome)
		OPTIONAL MATCH (e)-[:ABOUT]->(p:Product)
		WITH u, count(e) AS purchases, collect(DISTINCT p.product_id) AS products
		RETURN u.user_id AS uid, purchases, products
		ORDER BY purchases DESC
		LIMIT $n
	`, map[string]any{"n": topN})
	if err != nil {
		return nil, fmt.Errorf("top customers query failed: %w", err)
	}

	for _, row := range rows {
		out = append(out, CustomerPurchases{
			UserID:    asString(row["uid"]),
			Purchases: asInt64(row["purchases"]),
			Products:  asStringSlice(row["products"]),
		})
	}

	c.cacheSet(ctx, key, out)
	return out, nil
}

// PathsBeforePurchase ranks the event-type pairs occurring three and two
// NEXT-steps before a purchase event, optionally filtered to purchases
// about one product.
func (c *Client) PathsBeforePurchase(ctx context.Context, topK int, productID *string) ([]PathPattern, error) {
	var out []PathPattern
	key := utils.Fingerprint("paths_before_purchase", fmt.Sprint(topK), derefOr(productID, ""))
	if c.cacheGet(ctx, key, &out) {
		return out, nil
	}

	rows, err := c.reader.ReadRows(ctx, `
		MATCH (e0:Event)-[:RESULTED_IN]->(:Outcome)
		OPTIONAL MATCH (e0)-[:ABOUT]->(pp:Product)
		WITH e0, pp
		WHERE $pid IS NULL OR pp.product_id = $pid
		MATCH (:Event)-[:NEXT]->(e3:Event)-[:NEXT]->(e2:Event)-[:NEXT]->(:Event)-[:NEXT]->(e0)
		RETURN e3.type_raw AS step_before_2,
		       e2.type_raw AS step_before_1,
		       count(*) AS occurrences
		ORDER BY occurrences DESC
		LIMIT $k
	`, map[string]any{"k": topK, "pid": nullable(productID)})
	if err != nil {
		return nil, fmt.Errorf("path pattern query failed: %w", err)
	}

	for _, row := range rows {
		out = append(out, PathPattern{
			StepBefore2: asString(row["step_before_2"]),
			StepBefore1: asString(row["step_before_1"]),
			Occurrences: asInt64(row["occurrences"]),
		})
	}

	c.cacheSet(ctx, key, out)
	return out, nil
}

// Funnel counts sessions through the strict view > click > add-to-cart >
// purchase cohort: each stage only admits sessions that qualified for the
// previous one, so the counts never increase stage over stage.
func (c *Client) Funnel(ctx context.Context, productID *string) (FunnelCounts, error) {
	var out FunnelCounts
	key := utils.Fingerprint("funnel", derefOr(productID, ""))
	if c.cacheGet(ctx, key, &out) {
		return out, nil
	}

	rows, err := c.reader.ReadRows(ctx, `
		OPTIONAL MATCH (pp:Product {product_id: $pid})
		MATCH (s:Session)-[:CONTAINS]->(v:Event)
		OPTIONAL MATCH (v)-[:ABOUT]->(pv:Product)
		WITH pp, collect(DISTINCT CASE
			WHEN v.type_raw IN ['product_view', 'view', 'page_view']
			 AND ($pid IS NULL OR pv = pp) THEN s END) AS viewed

		MATCH (s1:Session)-[:CONTAINS]->(c:Event)
		OPTIONAL MATCH (c)-[:ABOUT]->(pc:Product)
		WITH pp, viewed, collect(DISTINCT CASE
			WHEN s1 IN viewed AND c.type_raw = 'click'
			 AND ($pid IS NULL OR pc = pp) THEN s1 END) AS clicked

		MATCH (s2:Session)-[:CONTAINS]->(a:Event)
		OPTIONAL MATCH (a)-[:ABOUT]->(pa:Product)
		WITH pp, viewed, clicked, collect(DISTINCT CASE
			WHEN s2 IN clicked AND a.type_raw = 'add_to_cart'
			 AND ($pid IS NULL OR pa = pp) THEN s2 END) AS carted

		MATCH (s3:Session)-[:CONTAINS]->(e:Event)-[:RESULTED_IN]->(:Outcome)
		OPTIONAL MATCH (e)-[:ABOUT]->(pe:Product)
		WITH viewed, clicked, carted, collect(DISTINCT CASE
			WHEN s3 IN carted AND ($pid IS NULL OR pe = pp) THEN s3 END) AS purchased

		RETURN size([x IN viewed WHERE x IS NOT NULL]) AS view_sessions,
		       size([x IN clicked WHERE x IS NOT NULL]) AS click_sessions,
		       size([x IN carted WHERE x IS NOT NULL]) AS cart_sessions,
		       size([x IN purchased WHERE x IS NOT NULL]) AS purchase_sessions
	`, map[string]any{"pid": nullable(productID)})
	if err != nil {
		return FunnelCounts{}, fmt.Errorf("funnel query failed: %w", err)
	}
	if len(rows) == 0 {
		return FunnelCounts{}, nil
	}

	out = FunnelCounts{
		ViewSessions:     asInt64(rows[0]["view_sessions"]),
		ClickSessions:    asInt64(rows[0]["click_sessions"]),
		CartSessions:     asInt64(rows[0]["cart_sessions"]),
		PurchaseSessions: asInt64(rows[0]["purchase_sessions"]),
	}

	c.cacheSet(ctx, key, out)
	return out, nil
}

func (c *Client) cacheGet(ctx context.Context, key string, out any) bool {
	if c.cache == nil {
		return false
	}
	hit, err := c.cache.GetReport(ctx, key, out)
	return err == nil && hit
}

func (c *Client) cacheSet(ctx context.Context, key string, value any) {
	if c.cache == nil {
		return
	}
	// A failed cache write is not an error; the report already rendered
	// from the store.
	_ = c.cache.SetReport(ctx, key, value)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
