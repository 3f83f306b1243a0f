package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/rental-listing-scraper/internal/models"
)

// CraigslistParser reads Craigslist housing detail pages.
type CraigslistParser struct{}

func NewCraigslistParser() *CraigslistParser {
	return &CraigslistParser{}
}

// postingData is the schema.org block Craigslist embeds in #ld_posting_data.
type postingData struct {
	Type                   schemaType    `json:"@type"`
	NumberOfBedrooms       looseString   `json:"numberOfBedrooms"`
	NumberOfBathroomsTotal looseString   `json:"numberOfBathroomsTotal"`
	PetsAllowed            looseString   `json:"petsAllowed"`
	Address                postalAddress `json:"address"`
}

// postalAddress decodes a schema.org PostalAddress. Any other JSON value
// leaves it empty.
type postalAddress struct {
	StreetAddress   looseString `json:"streetAddress"`
	AddressLocality looseString `json:"addressLocality"`
	AddressRegion   looseString `json:"addressRegion"`
	PostalCode      looseString `json:"postalCode"`
}

func (a *postalAddress) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*a = postalAddress{}
		return nil
	}
	type plain postalAddress
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = postalAddress(v)
	return nil
}

// schemaType accepts "@type" as a string or a list of strings, keeping the
// first non-empty name.
type schemaType string

func (t *schemaType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = ""
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*t = schemaType(v)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for _, item := range items {
			var v string
			if json.Unmarshal(item, &v) == nil && strings.TrimSpace(v) != "" {
				*t = schemaType(v)
				break
			}
		}
	}
	return nil
}

// looseString accepts JSON strings, numbers and booleans as text.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		*s = ""
		return nil
	}
	*s = looseString(data)
	return nil
}

func (s looseString) truthy() bool {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "", "false", "0", "no":
		return false
	}
	return true
}

func (p *CraigslistParser) ParseListing(outcome models.FetchOutcome) (*models.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outcome.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	raw := strings.TrimSpace(doc.Find("#ld_posting_data").First().Text())
	if raw == "" {
		return nil, p.missingReason(doc)
	}

	var data postingData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedListingData, err)
	}

	listing := &models.Listing{
		Bathrooms:   models.ParseNumber(string(data.NumberOfBathroomsTotal)),
		Bedrooms:    models.ParseNumber(string(data.NumberOfBedrooms)),
		Image:       p.extractImage(doc, outcome.URL),
		PetsAllowed: data.PetsAllowed.truthy(),
		Price:       p.extractPrice(doc),
		Size:        p.extractSquareFootage(doc),
		Type:        models.Unknown,
		URL:         outcome.URL,
	}

	if t := strings.TrimSpace(string(data.Type)); t != "" {
		listing.Type = t
	}

	a := data.Address
	listing.Address = models.AddressParts{
		Street:     string(a.StreetAddress),
		City:       string(a.AddressLocality),
		State:      string(a.AddressRegion),
		PostalCode: string(a.PostalCode),
	}.Format()

	return listing, nil
}

func (p *CraigslistParser) missingReason(doc *goquery.Document) error {
	if strings.TrimSpace(doc.Find(".removed").First().Text()) != "" {
		return ErrListingRemoved
	}
	if strings.TrimSpace(doc.Find(`[title="blocked"]`).First().Text()) != "" {
		return ErrListingBlocked
	}
	return ErrNoListingData
}

func (p *CraigslistParser) extractPrice(doc *goquery.Document) models.Number {
	return models.ParseNumber(digitsOnly(doc.Find(".price").First().Text()))
}

// extractSquareFootage reads the "900ft2" token of the housing summary.
func (p *CraigslistParser) extractSquareFootage(doc *goquery.Document) models.Number {
	housing := doc.Find(".housing").First().Text()
	for _, token := range strings.Split(housing, " ") {
		if strings.Contains(token, "ft") {
			return models.ParseNumber(leadingDigits(strings.TrimSpace(token)))
		}
	}
	return models.UnknownNumber()
}

func (p *CraigslistParser) extractImage(doc *goquery.Document, pageURL string) string {
	src, ok := doc.Find(`img[title="1"]`).First().Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return ""
	}

	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}

	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		return ""
	}
	return base.ResolveReference(ref).String()
}
