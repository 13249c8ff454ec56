// Package jpk renders the Polish JPK_V7M and JPK_V7K files: the VAT evidence of a
// month and, when due, the VAT-7 declaration computed from it.
package jpk

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tags.yaml
var defaultCatalogYAML []byte

type Side string

const (
	SideSale     Side = "sale"
	SidePurchase Side = "purchase"
)

// TagMapping routes the base and the tax amount of a tagged tax into evidence fields.
type TagMapping struct {
	Side Side   `yaml:"side"`
	Base string `yaml:"base"`
	Tax  string `yaml:"tax"`
}

// Catalog is the tag to field mapping plus the computed declaration positions.
type Catalog struct {
	Tags map[string]TagMapping `yaml:"tags"`
	Sums map[string][]string   `yaml:"sums"`

	sums []sumRule
}

type sumRule struct {
	target int
	terms  []int
}

// LoadCatalog parses a YAML catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse JPK catalog: %w", err)
	}
	for tag, m := range c.Tags {
		if m.Side != SideSale && m.Side != SidePurchase {
			return nil, fmt.Errorf("tag %s has invalid side %q", tag, m.Side)
		}
		for _, f := range []string{m.Base, m.Tax} {
			if f == "" {
				continue
			}
			if _, err := FieldNumber(f); err != nil {
				return nil, fmt.Errorf("tag %s: %w", tag, err)
			}
		}
	}
	for target, terms := range c.Sums {
		rule := sumRule{}
		n, err := FieldNumber(target)
		if err != nil {
			return nil, err
		}
		rule.target = n
		for _, term := range terms {
			n, err := FieldNumber(term)
			if err != nil {
				return nil, fmt.Errorf("sum %s: %w", target, err)
			}
			rule.terms = append(rule.terms, n)
		}
		c.sums = append(c.sums, rule)
	}
	// Sums may use earlier sums, so they are applied in position order.
	sort.Slice(c.sums, func(i, j int) bool { return c.sums[i].target < c.sums[j].target })
	return &c, nil
}

var defaultCatalog = func() *Catalog {
	c, err := LoadCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}()

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// FieldNumber returns the number of a K_ or P_ field name.
func FieldNumber(name string) (int, error) {
	for _, prefix := range []string{"K_", "P_"} {
		if strings.HasPrefix(name, prefix) {
			n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
			if err == nil && n > 0 {
				return n, nil
			}
		}
	}
	return 0, fmt.Errorf("invalid JPK field %q", name)
}
