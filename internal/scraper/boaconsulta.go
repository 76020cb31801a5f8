package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/precoterapia/precoterapia/internal/model"
)

// BoaConsulta scrapes boaconsulta.com listing pages. Listing cards carry no
// price; it lives on the professional's profile page, which is why profile
// fetches go through the cache-backed worker pool.
type BoaConsulta struct {
	// Specialty is the URL path segment, e.g. "psicologos".
	Specialty string
}

// Source implements Site.
func (b BoaConsulta) Source() model.Source {
	return model.SourceBoaConsulta
}

// ListingURL implements Site.
func (b BoaConsulta) ListingURL(citySlug string, page int) string {
	base := fmt.Sprintf("https://www.boaconsulta.com/%s/%s", b.Specialty, citySlug)
	if page <= 1 {
		return base
	}
	return fmt.Sprintf("%s?pagina=%d", base, page)
}

// ParseListing implements Site.
func (b BoaConsulta) ParseListing(doc *goquery.Document, citySlug string) []Listing {
	var listings []Listing

	doc.Find(`a[href*="/profissional/"], a[href*="/medico/"]`).Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		if name == "" {
			return
		}

		href, _ := a.Attr("href")
		if href == "" {
			return
		}

		listings = append(listings, Listing{
			Name:       name,
			ProfileURL: absoluteURL("https://www.boaconsulta.com", href),
			CitySlug:   citySlug,
		})
	})

	return listings
}

// ProfilePrice implements Site: first currency amount anywhere in the
// profile body.
func (b BoaConsulta) ProfilePrice(doc *goquery.Document) (string, bool) {
	text := doc.Find("body").Text()
	if m := priceRe.FindString(text); m != "" {
		return m, true
	}
	return "", false
}
