// Package bank ships the built-in question bank and parses bank files.
package bank

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"science-quiz/internal/domain"
)

// DefaultID names the embedded bank.
const DefaultID = "default"

//go:embed data/questions.yaml
var embeddedYAML []byte

// Parse decodes a YAML bank document and validates every question.
func Parse(data []byte) (domain.Bank, error) {
	var b domain.Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return domain.Bank{}, fmt.Errorf("decode bank: %w", err)
	}
	if b.ID == "" {
		b.ID = DefaultID
	}
	if err := domain.ValidateBank(b); err != nil {
		return domain.Bank{}, fmt.Errorf("validate bank %q: %w", b.ID, err)
	}
	return b, nil
}

// Embedded returns the built-in bank.
func Embedded() (domain.Bank, error) {
	return Parse(embeddedYAML)
}

// ReadFile parses a bank from a YAML file on disk.
func ReadFile(path string) (domain.Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Bank{}, err
	}
	return Parse(data)
}

// Loader serves banks parsed at construction time, keyed by id.
type Loader struct {
	banks map[string]domain.Bank
}

// NewLoader indexes the given banks by id.
func NewLoader(banks ...domain.Bank) *Loader {
	l := &Loader{banks: make(map[string]domain.Bank, len(banks))}
	for _, b := range banks {
		l.banks[b.ID] = b
	}
	return l
}

// LoadBank returns the bank with the given id or domain.ErrBankNotFound.
func (l *Loader) LoadBank(_ context.Context, id string) (domain.Bank, error) {
	if b, ok := l.banks[id]; ok {
		return b, nil
	}
	return domain.Bank{}, domain.ErrBankNotFound
}
