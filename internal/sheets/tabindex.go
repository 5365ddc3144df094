package sheets

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ListTabs scrapes the published workbook's HTML overview page for the
// actual tab names. This is the discovery fallback when every generated
// candidate misses: the publisher occasionally drifts outside the known
// naming conventions, and the index page always carries the real names.
func (c *Client) ListTabs(ctx context.Context) ([]string, error) {
	if c.indexURL == "" {
		return nil, fmt.Errorf("no index URL configured")
	}

	body, status, err := c.doRequest(ctx, c.indexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tab index: %w", err)
	}
	if status != 200 {
		return nil, fmt.Errorf("tab index returned status %d", status)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse tab index: %w", err)
	}

	var tabs []string
	seen := make(map[string]struct{})

	// Published workbooks list their tabs in the sheet menu; fall back to
	// any list links when the markup differs.
	selectors := []string{"#sheet-menu li a", "ul li a"}
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			name := strings.TrimSpace(s.Text())
			if name == "" {
				return
			}
			if _, dup := seen[name]; dup {
				return
			}
			seen[name] = struct{}{}
			tabs = append(tabs, name)
		})
		if len(tabs) > 0 {
			break
		}
	}

	log.Printf("[Sheets] Tab index listed %d tabs", len(tabs))
	return tabs, nil
}
