// Package catalog provides read-only access to the product catalog and
// FAQ set that back retrieval. Entries are loaded from JSON files and
// embedded once at index-build time; the bot core never mutates them.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Product is a single catalog entry.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// FAQ is a single frequently-asked-question entry.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// EmbedText returns the text that represents the product in the
// embedding index: name plus description plus category.
func (p Product) EmbedText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Name, p.Description, p.Category} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// EmbedText returns the text that represents the FAQ in the embedding
// index. Only the question is embedded; the answer is the payload.
func (f FAQ) EmbedText() string {
	return f.Question
}

// LoadProducts reads the product catalog from a JSON file.
// A missing file yields an empty catalog, not an error.
func LoadProducts(path string) ([]Product, error) {
	var products []Product
	if err := loadJSON(path, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// LoadFAQs reads the FAQ set from a JSON file.
// A missing file yields an empty set, not an error.
func LoadFAQs(path string) ([]FAQ, error) {
	var faqs []FAQ
	if err := loadJSON(path, &faqs); err != nil {
		return nil, err
	}
	return faqs, nil
}

func loadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
