package scraper

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/rental-listing-scraper/internal/config"
	"github.com/maltedev/rental-listing-scraper/internal/parser"
)

const (
	CraigslistName      = "Craigslist"
	CraigslistSearchURL = "https://minneapolis.craigslist.org/search/apa"

	craigslistResultLink = `a[class*="result-title"]`
	craigslistRangeTo    = ".rangeTo"
	craigslistTotalCount = ".totalcount"
	craigslistNextButton = "a.button.next"
)

// Craigslist searches apartment listings on a Craigslist site.
type Craigslist struct {
	searchURL      string
	resultsTimeout time.Duration
	parser         *parser.CraigslistParser
}

func NewCraigslist(searchURL string, resultsTimeout time.Duration) *Craigslist {
	if searchURL == "" {
		searchURL = CraigslistSearchURL
	}
	if resultsTimeout <= 0 {
		resultsTimeout = 5 * time.Second
	}
	return &Craigslist{
		searchURL:      searchURL,
		resultsTimeout: resultsTimeout,
		parser:         parser.NewCraigslistParser(),
	}
}

func (c *Craigslist) Name() string { return CraigslistName }

func (c *Craigslist) SearchURL() string { return c.searchURL }

func (c *Craigslist) Parser() parser.Parser { return c.parser }

func (c *Craigslist) Pager(page playwright.Page) ResultPager {
	return &craigslistPager{page: page, timeout: c.resultsTimeout}
}

type filterStep struct {
	name string
	run  func() error
}

// ApplyFilters fills the search form and sorts by newest then price.
// The first failing step aborts the whole sequence.
func (c *Craigslist) ApplyFilters(page playwright.Page, search config.Search) error {
	steps := []filterStep{
		{"search distance", func() error {
			return page.GetByPlaceholder("miles").Fill(strconv.Itoa(search.SearchDistance))
		}},
		{"postal code", func() error {
			return page.GetByPlaceholder("from zip").Fill(search.ZIP())
		}},
		{"bundle duplicates", func() error {
			return page.GetByLabel("bundle duplicates").Check()
		}},
		{"min price", func() error {
			return textbox(page, "min").Fill(strconv.Itoa(search.MinPrice))
		}},
		{"max price", func() error {
			return textbox(page, "max").Fill(strconv.Itoa(search.MaxPrice))
		}},
		{"bedrooms", func() error {
			return selectValue(page, `select[name="min_bedrooms"]`, search.Bedrooms)
		}},
	}

	if search.Bathrooms > 0 {
		steps = append(steps, filterStep{"bathrooms", func() error {
			return selectValue(page, `select[name="min_bathrooms"]`, search.Bathrooms)
		}})
	}

	if search.Pets.Cats() {
		steps = append(steps, filterStep{"cats ok", func() error {
			return page.GetByLabel("cats ok").Check()
		}})
	}
	if search.Pets.Dogs() {
		steps = append(steps, filterStep{"dogs ok", func() error {
			return page.GetByLabel("dogs ok").Check()
		}})
	}

	if search.InUnitLaundry {
		steps = append(steps,
			filterStep{"laundry section", func() error {
				return page.GetByText("▸▾ laundry").First().Click()
			}},
			filterStep{"w/d in unit", func() error {
				return page.GetByLabel("w/d in unit").Check()
			}},
		)
	}

	steps = append(steps,
		filterStep{"sort menu", func() error {
			return link(page, "newest").Click()
		}},
		filterStep{"sort by price", func() error {
			return link(page, "﹩→ $$$").Click()
		}},
		filterStep{"update search", func() error {
			return page.GetByRole("button", playwright.PageGetByRoleOptions{Name: "update search"}).Click()
		}},
	)

	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

func textbox(page playwright.Page, name string) playwright.Locator {
	return page.GetByRole("textbox", playwright.PageGetByRoleOptions{
		Name:  name,
		Exact: playwright.Bool(true),
	})
}

func link(page playwright.Page, name string) playwright.Locator {
	return page.GetByRole("link", playwright.PageGetByRoleOptions{Name: name}).First()
}

func selectValue(page playwright.Page, selector string, value int) error {
	_, err := page.Locator(selector).SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice(strconv.Itoa(value)),
	})
	return err
}

type craigslistPager struct {
	page    playwright.Page
	timeout time.Duration
}

func (p *craigslistPager) WaitForResults() error {
	_, err := p.page.WaitForSelector(craigslistResultLink, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(p.timeout.Milliseconds())),
	})
	return err
}

func (p *craigslistPager) ResultLinks() ([]string, error) {
	anchors, err := p.page.Locator(craigslistResultLink).All()
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(p.page.URL())

	links := make([]string, 0, len(anchors))
	for _, a := range anchors {
		href, err := a.GetAttribute("href")
		if err != nil {
			return nil, err
		}
		if href = resolveLink(base, href); href != "" {
			links = append(links, href)
		}
	}
	return links, nil
}

func (p *craigslistPager) Counters() (int, int, error) {
	rangeTo, err := p.page.Locator(craigslistRangeTo).First().InnerText()
	if err != nil {
		return 0, 0, err
	}
	total, err := p.page.Locator(craigslistTotalCount).First().InnerText()
	if err != nil {
		return 0, 0, err
	}

	current, err := parseCounter(rangeTo)
	if err != nil {
		return 0, 0, err
	}
	count, err := parseCounter(total)
	if err != nil {
		return 0, 0, err
	}
	return current, count, nil
}

func (p *craigslistPager) NextPage() error {
	if err := p.page.Locator(craigslistNextButton).First().Click(); err != nil {
		return err
	}
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateDomcontentloaded,
	})
}

// parseCounter reads result counters such as "120" or "1,234".
func parseCounter(text string) (int, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return 'x'
	}, strings.TrimSpace(text))

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedCounter, text)
	}
	return n, nil
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() || base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
