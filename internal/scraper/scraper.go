// Package scraper fetches professional listings from the supported sites
// and writes them as a raw price CSV. It is a collaborator of the pipeline,
// not part of it: the core only ever sees the completed file.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/precoterapia/precoterapia/internal/common"
	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/storage"
	"github.com/schollz/progressbar/v3"
)

// Listing is one professional card extracted from a listing page.
type Listing struct {
	Name       string
	ProfileURL string
	RawPrice   string
	City       string
	State      string
	CitySlug   string
}

// Site abstracts one listing website.
type Site interface {
	// Source identifies the site in outputs and the seen-set.
	Source() model.Source
	// ListingURL builds the paginated listing URL for a city slug.
	ListingURL(citySlug string, page int) string
	// ParseListing extracts professional cards from a listing page.
	ParseListing(doc *goquery.Document, citySlug string) []Listing
	// ProfilePrice extracts a price from a profile page, for sites that
	// only show prices there. Sites that price on the listing return
	// ok=false and are never profile-fetched.
	ProfilePrice(doc *goquery.Document) (string, bool)
}

// Config holds scraper tunables.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxWorkers  int
	MinInterval time.Duration
	PageDelay   time.Duration
	MaxPages    int
}

// Client drives a Site over a city list, with a bounded worker pool for
// profile fetches and a SQLite cache so re-runs skip fetched pages.
type Client struct {
	http  *resty.Client
	store *storage.Store
	cfg   Config
}

// New creates a scraper client over the given state store.
func New(store *storage.Store, cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; precoterapia/1.0)"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)

	return &Client{http: httpClient, store: store, cfg: cfg}
}

// ScrapeCity walks a site's listing pages for one city slug, writing every
// newly seen listing to out. Pagination stops when a page yields no new
// profiles or MaxPages is reached.
func (c *Client) ScrapeCity(ctx context.Context, site Site, citySlug string, out *Writer) error {
	bar := progressbar.Default(-1, fmt.Sprintf("%s/%s", site.Source(), citySlug))
	defer func() { _ = bar.Finish() }()

	for page := 1; page <= c.cfg.MaxPages; page++ {
		url := site.ListingURL(citySlug, page)

		html, err := c.fetch(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to fetch listing page %d for %s: %w", page, citySlug, err)
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return fmt.Errorf("failed to parse listing page %d for %s: %w", page, citySlug, err)
		}

		listings := site.ParseListing(doc, citySlug)

		var fresh []Listing
		for _, l := range listings {
			added, seenErr := c.store.MarkSeen(ctx, string(site.Source()), l.Name, l.ProfileURL)
			if seenErr != nil {
				return seenErr
			}
			if added {
				fresh = append(fresh, l)
			}
		}

		slog.Debug("Parsed listing page",
			"site", site.Source(), "city", citySlug, "page", page,
			"cards", len(listings), "new", len(fresh))

		if len(fresh) == 0 {
			break
		}

		if err := c.completeAndWrite(ctx, site, fresh, out); err != nil {
			return err
		}
		_ = bar.Add(len(fresh))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.PageDelay):
		}
	}

	return nil
}

// completeAndWrite fills in profile-page prices where the listing had none,
// then writes the batch. Profile fetches run on the bounded pool.
func (c *Client) completeAndWrite(ctx context.Context, site Site, listings []Listing, out *Writer) error {
	pool := newWorkerPool(c.cfg.MaxWorkers, c.cfg.MinInterval)

	for i := range listings {
		if listings[i].RawPrice != "" || listings[i].ProfileURL == "" {
			continue
		}

		idx := i
		pool.Submit(func() {
			price, err := c.profilePrice(ctx, site, listings[idx].ProfileURL)
			if err != nil {
				slog.Warn("Failed to fetch profile",
					"url", listings[idx].ProfileURL, "error", err)
				return
			}
			listings[idx].RawPrice = price
		})
	}
	pool.Wait()

	for _, l := range listings {
		if err := out.Write(site.Source(), l); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) profilePrice(ctx context.Context, site Site, profileURL string) (string, error) {
	profileID := profileIDFromURL(profileURL)

	html, ok, err := c.store.GetCachedProfile(ctx, profileID)
	if err != nil {
		return "", err
	}
	if !ok {
		html, err = c.fetch(ctx, profileURL)
		if err != nil {
			return "", err
		}
		if saveErr := c.store.SaveCachedProfile(ctx, profileID, profileURL, html); saveErr != nil {
			return "", saveErr
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse profile %s: %w", profileURL, err)
	}

	price, _ := site.ProfilePrice(doc)
	return price, nil
}

// fetch performs one GET with retries. 429 responses back off to the retry
// ceiling.
func (c *Client) fetch(ctx context.Context, url string) (string, error) {
	var body string

	err := common.WithRetry(ctx, func() error {
		res, err := c.http.R().SetContext(ctx).Get(url)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrFetchFailed, err)
		}
		if res.StatusCode() == 429 {
			return common.ErrRateLimit
		}
		if res.StatusCode() != 200 {
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: %s returned %d", common.ErrFetchFailed, url, res.StatusCode()),
				Retryable: res.StatusCode() >= 500,
			}
		}
		body = string(res.Body())
		return nil
	}, common.RetryOptions{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 30 * time.Second})

	return body, err
}

// profileIDFromURL derives a stable cache key from a profile URL.
func profileIDFromURL(url string) string {
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[i+1:]
	}
	return url
}

// AnonymizeName keeps the first name and last initial, matching how the
// scraped files were collected.
func AnonymizeName(name string) string {
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	last := []rune(parts[len(parts)-1])
	return parts[0] + " " + string(last[0]) + "."
}
