// Package seed imports article catalogs into a user's article history.
package seed

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/voice-orders/internal/repository"
)

// Catalog is the file format read by LoadCatalog. JSON files parse too.
//
//	articles:
//	  - articleId: "100234"
//	    articleName: Coca-Cola 0,33l
//	    supplier: Getränke Huber
//	    unit: Kiste
//	    price: 18.99
type Catalog struct {
	Articles []CatalogArticle `yaml:"articles"`
}

// CatalogArticle is one catalog row. Price is in major units; LastPrice, if
// set, is already in minor units and wins over Price.
type CatalogArticle struct {
	ArticleID     string   `yaml:"articleId"`
	ArticleName   string   `yaml:"articleName"`
	Supplier      string   `yaml:"supplier"`
	EAN           string   `yaml:"ean"`
	Unit          string   `yaml:"unit"`
	Price         *float64 `yaml:"price"`
	LastPrice     *int64   `yaml:"lastPrice"`
	LastOrderedAt string   `yaml:"lastOrderedAt"`
}

// LoadCatalog reads a YAML or JSON catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseCatalog(f)
}

func ParseCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		if err == io.EOF {
			return &c, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &c, nil
}

// SkippedRow is a catalog row that could not be imported.
type SkippedRow struct {
	Index  int
	Reason string
}

// HistoryArticles converts the catalog, skipping invalid rows and repeated
// article ids. The first occurrence of an id wins.
func (c *Catalog) HistoryArticles() ([]repository.HistoryArticle, []SkippedRow) {
	out := make([]repository.HistoryArticle, 0, len(c.Articles))
	var skipped []SkippedRow
	seen := make(map[string]struct{}, len(c.Articles))
	for i, a := range c.Articles {
		ha, err := a.historyArticle()
		if err != nil {
			skipped = append(skipped, SkippedRow{Index: i, Reason: err.Error()})
			continue
		}
		if _, dup := seen[ha.ArticleID]; dup {
			skipped = append(skipped, SkippedRow{Index: i, Reason: "duplicate article id " + ha.ArticleID})
			continue
		}
		seen[ha.ArticleID] = struct{}{}
		out = append(out, ha)
	}
	return out, skipped
}

func (a CatalogArticle) historyArticle() (repository.HistoryArticle, error) {
	ha := repository.HistoryArticle{
		ArticleID:   strings.TrimSpace(a.ArticleID),
		ArticleName: strings.TrimSpace(a.ArticleName),
		Supplier:    optional(a.Supplier),
		EAN:         optional(a.EAN),
		Unit:        optional(a.Unit),
	}
	if ha.ArticleID == "" {
		return ha, fmt.Errorf("missing articleId")
	}
	if ha.ArticleName == "" {
		return ha, fmt.Errorf("missing articleName")
	}
	switch {
	case a.LastPrice != nil:
		p := *a.LastPrice
		ha.Price = &p
	case a.Price != nil:
		p := int64(math.Round(*a.Price * 100))
		ha.Price = &p
	}
	if ha.Price != nil && *ha.Price < 0 {
		return ha, fmt.Errorf("negative price")
	}
	if s := strings.TrimSpace(a.LastOrderedAt); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return ha, fmt.Errorf("lastOrderedAt: %w", err)
		}
		ha.OrderedAt = t
	}
	return ha, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
