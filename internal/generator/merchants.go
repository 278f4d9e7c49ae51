package generator

import (
	"fmt"
	"strings"

	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

func isCategory(c string) bool {
	for _, known := range models.Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Validate checks the merchant catalog
func (p MerchantParams) Validate() error {
	v := newViolations("merchants")
	if len(p.Catalog) == 0 {
		v.add("merchants", "a non-empty catalog", len(p.Catalog))
	}
	for i, m := range p.Catalog {
		if strings.TrimSpace(m.Name) == "" {
			v.add(fmt.Sprintf("merchants[%d].name", i), "non-empty", fmt.Sprintf("%q", m.Name))
		}
		if !isCategory(m.Category) {
			v.add(fmt.Sprintf("merchants[%d].category", i), "one of "+strings.Join(models.Categories, "/"), fmt.Sprintf("%q", m.Category))
		}
	}
	return v.err()
}

// GenerateMerchants returns the catalog as a table with m_id 1..len(Catalog).
// No randomness is involved.
func (dg *DataGenerator) GenerateMerchants(p MerchantParams) (*models.MerchantTable, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := len(p.Catalog)
	t := &models.MerchantTable{
		MID:      make([]int64, n),
		MName:    make([]string, n),
		Category: make([]string, n),
	}
	for i, m := range p.Catalog {
		t.MID[i] = int64(i + 1)
		t.MName[i] = m.Name
		t.Category[i] = m.Category
	}

	dg.Logger.Infof("Generated merchant catalog with %d merchants", n)
	return t, nil
}
