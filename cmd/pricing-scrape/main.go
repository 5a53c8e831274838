// Command pricing-scrape probes the public Klaviyo pricing calculator at a
// set of contact counts and emits the resulting tier table as YAML, in the
// format the server accepts via pricing.table_path. Pricing pages are
// rendered client-side and reshuffled often, so the scrape is best effort:
// probe points with no recognizable price are skipped with a warning.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/ignite/klaviyo-audit/internal/pricing"
)

const (
	pricingURL = "https://www.klaviyo.com/pricing?contacts=%d&smsCredits=150"
	userAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Probe points sit just past each published tier boundary so the price read
// at a point is the price for the whole tier starting there.
var probePoints = []int{
	251, 501, 1001, 2501, 5001, 7501, 10001, 12501, 15001, 17501,
	20001, 22501, 25001, 27501, 30001, 32501, 35001, 37501, 40001,
	42501, 45001, 50001, 60001, 70001, 85001, 100001, 125001, 150001,
}

var (
	priceRe        = regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})*)`)
	monthlyPriceRe = regexp.MustCompile(`(?i)\$(\d{1,3}(?:,\d{3})*)\s*(?:per month|/month)`)
)

func main() {
	output := flag.String("o", "", "output file (default stdout)")
	version := flag.String("version", time.Now().Format("2006-01"), "version stamp for the emitted table")
	delay := flag.Duration("delay", time.Second, "pause between page fetches")
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}
	prices := map[int]float64{}

	for _, contacts := range probePoints {
		price, err := fetchPrice(client, contacts)
		if err != nil {
			log.Printf("skipping %d contacts: %v", contacts, err)
		} else {
			log.Printf("%d contacts: $%.0f/month", contacts, price)
			prices[contacts] = price
		}
		time.Sleep(*delay)
	}

	if len(prices) == 0 {
		log.Fatal("no prices found at any probe point")
	}

	table := buildTable(prices, *version)
	data, err := yaml.Marshal(table)
	if err != nil {
		log.Fatalf("failed to encode table: %v", err)
	}

	if *output == "" {
		fmt.Print(string(data))
		return
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		log.Fatalf("failed to write %s: %v", *output, err)
	}
	log.Printf("wrote %d tiers to %s", len(table.Tiers), *output)
}

// fetchPrice loads the calculator page for a contact count and hunts for a
// monthly price in it.
func fetchPrice(client *http.Client, contacts int) (float64, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf(pricingURL, contacts), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, err
	}

	// Price-ish containers first, then any "$N per month" in the page text.
	var price float64
	doc.Find(`[data-testid*="price"], [class*="price"], [class*="calculator"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := parsePrice(priceRe.FindStringSubmatch(s.Text())); ok {
			price = v
			return false
		}
		return true
	})
	if price == 0 {
		if v, ok := parsePrice(monthlyPriceRe.FindStringSubmatch(doc.Find("body").Text())); ok {
			price = v
		}
	}
	if price == 0 {
		return 0, fmt.Errorf("no price found on page")
	}
	return price, nil
}

// parsePrice converts a regex match to a dollar value, rejecting amounts
// too small or too large to be a plan price (e.g. the $20 base teaser).
func parsePrice(match []string) (float64, bool) {
	if len(match) < 2 {
		return 0, false
	}
	v, err := strconv.Atoi(strings.ReplaceAll(match[1], ",", ""))
	if err != nil || v <= 15 || v >= 10000 {
		return 0, false
	}
	return float64(v), true
}

// buildTable turns the probed (boundary -> price) points into contiguous
// tiers: each tier runs from its probe point to just before the next one.
func buildTable(prices map[int]float64, version string) pricing.Table {
	points := make([]int, 0, len(prices))
	for p := range prices {
		points = append(points, p)
	}
	sort.Ints(points)

	var tiers []pricing.Tier
	if points[0] == 251 {
		tiers = append(tiers, pricing.Tier{Min: 0, Max: 250, Price: 0})
	}
	for i, p := range points {
		max := p + 49999
		if i < len(points)-1 {
			max = points[i+1] - 1
		}
		tiers = append(tiers, pricing.Tier{Min: p, Max: max, Price: prices[p]})
	}

	return pricing.Table{Version: version, Tiers: tiers}
}
