package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/rental-listing-scraper/internal/config"
)

func TestNewCraigslistDefaults(t *testing.T) {
	c := NewCraigslist("", 0)

	assert.Equal(t, "Craigslist", c.Name())
	assert.Equal(t, CraigslistSearchURL, c.SearchURL())
	assert.Equal(t, 5*time.Second, c.resultsTimeout)
	assert.NotNil(t, c.Parser())

	pager, ok := c.Pager(nil).(*craigslistPager)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, pager.timeout)
}

func TestParseCounter(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		wantErr  bool
	}{
		{"120", 120, false},
		{" 1,234 ", 1234, false},
		{"2 500", 2500, false},
		{"", 0, true},
		{"n/a", 0, true},
		{"12 of 40", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n, err := parseCounter(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedCounter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestResolveLink(t *testing.T) {
	base, err := url.Parse("https://minneapolis.craigslist.org/search/apa?s=120")
	require.NoError(t, err)

	assert.Equal(t, "https://minneapolis.craigslist.org/hnp/apa/d/x/1.html", resolveLink(base, "/hnp/apa/d/x/1.html"))
	assert.Equal(t, "https://stpaul.craigslist.org/apa/d/2.html", resolveLink(base, "https://stpaul.craigslist.org/apa/d/2.html"))
	assert.Equal(t, "", resolveLink(base, "  "))
	assert.Equal(t, "/apa/d/3.html", resolveLink(nil, "/apa/d/3.html"))
}

// formPage records every locator action as "<action> <target>[=<value>]".
type formPage struct {
	playwright.Page

	url     string
	actions []string
	failOn  string
	texts   map[string]string
	hrefs   []string
	waitErr error
}

func (p *formPage) locator(target string) *formLocator {
	return &formLocator{page: p, target: target}
}

func (p *formPage) record(action string) error {
	p.actions = append(p.actions, action)
	if p.failOn != "" && action == p.failOn {
		return errors.New("timeout 30000ms exceeded")
	}
	return nil
}

func (p *formPage) GetByPlaceholder(text interface{}, options ...playwright.PageGetByPlaceholderOptions) playwright.Locator {
	return p.locator(fmt.Sprintf("placeholder:%v", text))
}

func (p *formPage) GetByLabel(text interface{}, options ...playwright.PageGetByLabelOptions) playwright.Locator {
	return p.locator(fmt.Sprintf("label:%v", text))
}

func (p *formPage) GetByText(text interface{}, options ...playwright.PageGetByTextOptions) playwright.Locator {
	return p.locator(fmt.Sprintf("text:%v", text))
}

func (p *formPage) GetByRole(role playwright.AriaRole, options ...playwright.PageGetByRoleOptions) playwright.Locator {
	name := ""
	if len(options) > 0 {
		name = fmt.Sprint(options[0].Name)
	}
	return p.locator(fmt.Sprintf("%s:%s", role, name))
}

func (p *formPage) Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator {
	return p.locator(selector)
}

func (p *formPage) WaitForSelector(selector string, options ...playwright.PageWaitForSelectorOptions) (playwright.ElementHandle, error) {
	p.actions = append(p.actions, "wait "+selector)
	return nil, p.waitErr
}

func (p *formPage) WaitForLoadState(options ...playwright.PageWaitForLoadStateOptions) error {
	return p.record("load")
}

func (p *formPage) URL() string { return p.url }

// pwLocator aliases playwright.Locator so the embedded field is not named
// Locator, which would shadow the interface's Locator method.
type pwLocator = playwright.Locator

type formLocator struct {
	pwLocator

	page   *formPage
	target string
	href   string
}

func (l *formLocator) First() playwright.Locator { return l }

func (l *formLocator) Fill(value string, options ...playwright.LocatorFillOptions) error {
	return l.page.record(fmt.Sprintf("fill %s=%s", l.target, value))
}

func (l *formLocator) Check(options ...playwright.LocatorCheckOptions) error {
	return l.page.record("check " + l.target)
}

func (l *formLocator) Click(options ...playwright.LocatorClickOptions) error {
	return l.page.record("click " + l.target)
}

func (l *formLocator) SelectOption(values playwright.SelectOptionValues, options ...playwright.LocatorSelectOptionOptions) ([]string, error) {
	var picked []string
	if values.Values != nil {
		picked = *values.Values
	}
	return picked, l.page.record(fmt.Sprintf("select %s=%s", l.target, strings.Join(picked, ",")))
}

func (l *formLocator) InnerText(options ...playwright.LocatorInnerTextOptions) (string, error) {
	text, ok := l.page.texts[l.target]
	if !ok {
		return "", fmt.Errorf("no element matches %s", l.target)
	}
	return text, nil
}

func (l *formLocator) All() ([]playwright.Locator, error) {
	all := make([]playwright.Locator, 0, len(l.page.hrefs))
	for _, href := range l.page.hrefs {
		all = append(all, &formLocator{page: l.page, target: l.target, href: href})
	}
	return all, nil
}

func (l *formLocator) GetAttribute(name string, options ...playwright.LocatorGetAttributeOptions) (string, error) {
	return l.href, nil
}

func testSearch(pets config.PetPolicy) config.Search {
	return config.Search{
		Bathrooms:      1,
		Bedrooms:       2,
		InUnitLaundry:  true,
		MinPrice:       900,
		MaxPrice:       1750,
		Pets:           pets,
		PostalCode:     5401,
		SearchDistance: 25,
	}
}

var (
	leadingFilterSteps = []string{
		"fill placeholder:miles=25",
		"fill placeholder:from zip=05401",
		"check label:bundle duplicates",
		"fill textbox:min=900",
		"fill textbox:max=1750",
		`select select[name="min_bedrooms"]=2`,
		`select select[name="min_bathrooms"]=1`,
	}
	trailingFilterSteps = []string{
		"click text:▸▾ laundry",
		"check label:w/d in unit",
		"click link:newest",
		"click link:﹩→ $$$",
		"click button:update search",
	}
)

func filterSteps(pets ...string) []string {
	steps := append([]string{}, leadingFilterSteps...)
	steps = append(steps, pets...)
	return append(steps, trailingFilterSteps...)
}

func TestCraigslistApplyFiltersPetPolicies(t *testing.T) {
	tests := []struct {
		name     string
		pets     config.PetPolicy
		expected []string
	}{
		{"no pet filter", config.PetsAny, filterSteps()},
		{"cats", config.PetsCats, filterSteps("check label:cats ok")},
		{"dogs", config.PetsDogs, filterSteps("check label:dogs ok")},
		{"both", config.PetsBoth, filterSteps("check label:cats ok", "check label:dogs ok")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &formPage{}
			err := NewCraigslist("", 0).ApplyFilters(page, testSearch(tt.pets))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, page.actions)
		})
	}
}

func TestCraigslistApplyFiltersOptionalSteps(t *testing.T) {
	search := testSearch(config.PetsAny)
	search.Bathrooms = 0
	search.InUnitLaundry = false

	page := &formPage{}
	require.NoError(t, NewCraigslist("", 0).ApplyFilters(page, search))

	assert.NotContains(t, page.actions, `select select[name="min_bathrooms"]=0`)
	assert.NotContains(t, page.actions, "click text:▸▾ laundry")
	assert.NotContains(t, page.actions, "check label:w/d in unit")
	assert.Equal(t, `select select[name="min_bedrooms"]=2`, page.actions[5])
	assert.Equal(t, "click link:newest", page.actions[6])
	assert.Len(t, page.actions, 9)
}

func TestCraigslistApplyFiltersStopsAtFirstFailure(t *testing.T) {
	page := &formPage{failOn: "check label:bundle duplicates"}

	err := NewCraigslist("", 0).ApplyFilters(page, testSearch(config.PetsBoth))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "bundle duplicates: "))
	assert.Equal(t, leadingFilterSteps[:3], page.actions)
}

func TestCraigslistPager(t *testing.T) {
	page := &formPage{
		url: "https://minneapolis.craigslist.org/search/apa?s=0",
		texts: map[string]string{
			".rangeTo":    "120",
			".totalcount": "1,234",
		},
		hrefs: []string{
			"/hnp/apa/d/a/1.html",
			"https://stpaul.craigslist.org/apa/d/b/2.html",
			" ",
		},
	}
	pager := NewCraigslist("", 0).Pager(page)

	require.NoError(t, pager.WaitForResults())

	links, err := pager.ResultLinks()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://minneapolis.craigslist.org/hnp/apa/d/a/1.html",
		"https://stpaul.craigslist.org/apa/d/b/2.html",
	}, links)

	current, total, err := pager.Counters()
	require.NoError(t, err)
	assert.Equal(t, 120, current)
	assert.Equal(t, 1234, total)

	require.NoError(t, pager.NextPage())
	assert.Equal(t, []string{
		`wait a[class*="result-title"]`,
		"click a.button.next",
		"load",
	}, page.actions)
}

func TestCraigslistPagerErrors(t *testing.T) {
	t.Run("malformed counter", func(t *testing.T) {
		page := &formPage{texts: map[string]string{".rangeTo": "1 - 120", ".totalcount": "300"}}
		_, _, err := NewCraigslist("", 0).Pager(page).Counters()
		assert.ErrorIs(t, err, ErrMalformedCounter)
	})

	t.Run("missing counter", func(t *testing.T) {
		page := &formPage{texts: map[string]string{".rangeTo": "120"}}
		_, _, err := NewCraigslist("", 0).Pager(page).Counters()
		assert.Error(t, err)
	})

	t.Run("results never render", func(t *testing.T) {
		page := &formPage{waitErr: errors.New("timeout 5000ms exceeded")}
		assert.Error(t, NewCraigslist("", 0).Pager(page).WaitForResults())
	})

	t.Run("next button fails", func(t *testing.T) {
		page := &formPage{failOn: "click a.button.next"}
		assert.Error(t, NewCraigslist("", 0).Pager(page).NextPage())
		assert.NotContains(t, page.actions, "load")
	})
}
