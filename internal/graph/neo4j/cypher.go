package neo4j

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ecom-graph/backend/internal/graph/model"
)

// Endpoint names one node of a relationship by its label and natural key.
type Endpoint struct {
	Label    string
	KeyField string
	KeyValue string
}

// nodeKeyFields is the schema whitelist: only these labels exist, each
// with exactly one merge key. Labels and property names cannot be query
// parameters in Cypher, so everything spliced into query text must come
// from this table.
var nodeKeyFields = map[string]string{
	model.LabelUser:    model.KeyUser,
	model.LabelSession: model.KeySession,
	model.LabelEvent:   model.KeyEvent,
	model.LabelProduct: model.KeyProduct,
	model.LabelOutcome: model.KeyOutcome,
}

var relationshipTypes = map[string]struct{}{
	model.RelStarted:    {},
	model.RelContains:   {},
	model.RelNext:       {},
	model.RelAbout:      {},
	model.RelResultedIn: {},
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateLabelKey(label, keyField string) error {
	want, ok := nodeKeyFields[label]
	if !ok {
		return fmt.Errorf("unknown node label %q", label)
	}
	if keyField != want {
		return fmt.Errorf("label %s merges on %s, not %q", label, want, keyField)
	}
	return nil
}

func validateRelType(relType string) error {
	if _, ok := relationshipTypes[relType]; !ok {
		return fmt.Errorf("unknown relationship type %q", relType)
	}
	return nil
}

func validatePropKeys(props map[string]any) error {
	for key := range props {
		if !identifierPattern.MatchString(key) {
			return fmt.Errorf("invalid property name %q", key)
		}
	}
	return nil
}

// nodeMergeQuery upserts a node by its natural key and overlays the
// remaining properties.
func nodeMergeQuery(label, keyField string) string {
	return fmt.Sprintf("MERGE (n:%s {%s: $key}) SET n += $props", label, keyField)
}

// relationshipMergeQuery upserts both endpoints by key, then the
// relationship. The attribute map is part of the MERGE pattern so the
// (from, type, to, attributes) tuple is the relationship identity.
func relationshipMergeQuery(from, to Endpoint, relType string, props map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MERGE (a:%s {%s: $from_key})\n", from.Label, from.KeyField)
	fmt.Fprintf(&b, "MERGE (b:%s {%s: $to_key})\n", to.Label, to.KeyField)
	fmt.Fprintf(&b, "MERGE (a)-[r:%s%s]->(b)", relType, relPropsPattern(props))
	return b.String()
}

// relPropsPattern renders `{k1: $p_k1, k2: $p_k2}` with keys sorted, or
// the empty string for no attributes.
func relPropsPattern(props map[string]any) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf("%s: $p_%s", key, key)
	}
	return " {" + strings.Join(parts, ", ") + "}"
}
