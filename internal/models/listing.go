package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unknown is written in place of any numeric field that is missing or unparsable.
const Unknown = "unknown"

// Number is a listing measurement that is either a known value or Unknown.
type Number struct {
	value float64
	known bool
}

func KnownNumber(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{value: v, known: true}
}

func UnknownNumber() Number {
	return Number{}
}

// ParseNumber coerces text to a Number. Empty, unparsable and zero values are unknown.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f == 0 {
		return Number{}
	}
	return KnownNumber(f)
}

func (n Number) Known() bool {
	return n.known
}

func (n Number) Float64() (float64, bool) {
	return n.value, n.known
}

func (n Number) String() string {
	if !n.known {
		return Unknown
	}
	return strconv.FormatFloat(n.value, 'f', -1, 64)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.known {
		return json.Marshal(Unknown)
	}
	return []byte(strconv.FormatFloat(n.value, 'f', -1, 64)), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.EqualFold(s, Unknown) {
			*n = Number{}
			return nil
		}
		*n = ParseNumber(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	*n = KnownNumber(f)
	return nil
}

// Listing is one rental unit observation.
type Listing struct {
	Address     string `json:"address"`
	Bathrooms   Number `json:"bathrooms"`
	Bedrooms    Number `json:"bedrooms"`
	Image       string `json:"image,omitempty"`
	PetsAllowed bool   `json:"petsAllowed"`
	Price       Number `json:"price"`
	Size        Number `json:"size"`
	Type        string `json:"type"`
	URL         string `json:"url"`
}

// AddressParts are the raw address components of a listing.
type AddressParts struct {
	Street     string
	City       string
	State      string
	PostalCode string
}

// Format joins the non-empty parts with ", " in street, city, state, postal code order.
func (a AddressParts) Format() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// FetchOutcome pairs a requested URL with its retrieved body.
type FetchOutcome struct {
	URL        string
	Body       string
	StatusCode int
}
