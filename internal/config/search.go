package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PetPolicy selects which pet toggles are applied to a search.
type PetPolicy string

const (
	PetsAny  PetPolicy = ""
	PetsCats PetPolicy = "cats"
	PetsDogs PetPolicy = "dogs"
	PetsBoth PetPolicy = "both"
)

func (p PetPolicy) Cats() bool { return p == PetsCats || p == PetsBoth }
func (p PetPolicy) Dogs() bool { return p == PetsDogs || p == PetsBoth }

// ParsePetPolicy maps cat(s), dog(s) and booleans to a policy.
// Anything else applies no pet filter.
func ParsePetPolicy(value string) PetPolicy {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "cat", "cats":
		return PetsCats
	case "dog", "dogs":
		return PetsDogs
	case "both":
		return PetsBoth
	}
	if b, err := strconv.ParseBool(value); err == nil && b {
		return PetsBoth
	}
	return PetsAny
}

func (p *PetPolicy) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		*p = PetsAny
		return nil
	}
	if node.Tag == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		if b {
			*p = PetsBoth
		} else {
			*p = PetsAny
		}
		return nil
	}
	*p = ParsePetPolicy(node.Value)
	return nil
}

// Search holds the search criteria applied to the results page.
type Search struct {
	Bathrooms      int       `yaml:"bathrooms"`
	Bedrooms       int       `yaml:"bedrooms"`
	InUnitLaundry  bool      `yaml:"inUnitLaundry"`
	MinPrice       int       `yaml:"minPrice"`
	MaxPrice       int       `yaml:"maxPrice"`
	Pets           PetPolicy `yaml:"pets"`
	PostalCode     int       `yaml:"postalCode"`
	SearchDistance int       `yaml:"searchDistance"`
}

// DefaultSearch returns the criteria used when the file omits a value.
// An omitted pets value applies no pet filter.
func DefaultSearch() Search {
	return Search{
		Bathrooms:      1,
		Bedrooms:       2,
		InUnitLaundry:  true,
		MinPrice:       900,
		MaxPrice:       1750,
		Pets:           PetsAny,
		PostalCode:     55401,
		SearchDistance: 25,
	}
}

func LoadSearch(path string) (*Search, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read search config %s: %w", path, err)
	}
	return ParseSearch(data)
}

func ParseSearch(data []byte) (*Search, error) {
	search := DefaultSearch()
	if err := yaml.Unmarshal(data, &search); err != nil {
		return nil, fmt.Errorf("failed to parse search config: %w", err)
	}
	return &search, nil
}

// ZIP renders the postal code as a five digit string.
func (s Search) ZIP() string {
	return fmt.Sprintf("%05d", s.PostalCode)
}

func (s Search) Validate() error {
	if s.MinPrice < 0 || s.MaxPrice < 0 {
		return fmt.Errorf("prices must not be negative")
	}
	if s.MaxPrice > 0 && s.MinPrice > s.MaxPrice {
		return fmt.Errorf("minPrice %d cannot be greater than maxPrice %d", s.MinPrice, s.MaxPrice)
	}
	if s.SearchDistance < 0 {
		return fmt.Errorf("searchDistance must not be negative")
	}
	if s.PostalCode < 0 || s.PostalCode > 99999 {
		return fmt.Errorf("postalCode %d is not a valid ZIP code", s.PostalCode)
	}
	if s.Bedrooms < 0 || s.Bathrooms < 0 {
		return fmt.Errorf("bedrooms and bathrooms must not be negative")
	}
	return nil
}
