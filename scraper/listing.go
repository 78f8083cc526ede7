// scraper/listing.go
package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibis-project/ibis-examples/models"
)

// ResolveArchiveURL scrapes a bulk-download listing page and returns the
// absolute URL of the first link whose file name is archiveName.
func ResolveArchiveURL(ctx context.Context, client *http.Client, pageURL, archiveName string) (string, error) {
	log.Printf("Scraper: Looking for %s on %s\n", archiveName, pageURL)

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid listing URL %s: %w", models.ErrNetwork, pageURL, err)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to build request for %s: %w", models.ErrNetwork, pageURL, err)
	}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to get URL %s: %w", models.ErrNetwork, pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: failed to get URL %s: status code %d", models.ErrNetwork, pageURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse HTML from %s: %w", models.ErrNetwork, pageURL, err)
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(i int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		if path.Base(ref.Path) == archiveName {
			found = base.ResolveReference(ref).String()
			return false
		}
		return true
	})

	if found == "" {
		return "", fmt.Errorf("%w: no link to %s found on %s", models.ErrNetwork, archiveName, pageURL)
	}
	log.Printf("Scraper: Resolved %s to %s\n", archiveName, found)
	return found, nil
}
