package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/precoterapia/precoterapia/internal/model"
)

var priceRe = regexp.MustCompile(`R\$[\s\x{00a0}]*[\d.,]+`)

// Doctoralia scrapes doctoralia.com.br listing pages. Prices usually appear
// on the listing cards themselves.
type Doctoralia struct {
	// Specialty is the URL path segment, e.g. "psicologo" or "psiquiatra".
	Specialty string
}

// Source implements Site.
func (d Doctoralia) Source() model.Source {
	return model.SourceDoctoralia
}

// ListingURL implements Site.
func (d Doctoralia) ListingURL(citySlug string, page int) string {
	base := fmt.Sprintf("https://www.doctoralia.com.br/%s/%s", d.Specialty, citySlug)
	if page <= 1 {
		return base
	}
	return fmt.Sprintf("%s?page=%d", base, page)
}

// ParseListing implements Site. Cards are identified by their profile
// anchors; the price is the first currency amount in the surrounding card
// text.
func (d Doctoralia) ParseListing(doc *goquery.Document, citySlug string) []Listing {
	var listings []Listing

	doc.Find(`a[href*="/` + d.Specialty + `/"]`).Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		if name == "" || strings.Contains(strings.ToLower(name), "opini") {
			return
		}

		href, _ := a.Attr("href")
		if href == "" {
			return
		}

		// Walk up a few levels looking for the card block with the price.
		block := a
		var price string
		for i := 0; i < 3; i++ {
			text := block.Text()
			if m := priceRe.FindString(text); m != "" {
				price = m
				break
			}
			parent := block.Parent()
			if parent.Length() == 0 {
				break
			}
			block = parent
		}

		listings = append(listings, Listing{
			Name:       name,
			ProfileURL: absoluteURL("https://www.doctoralia.com.br", href),
			RawPrice:   price,
			CitySlug:   citySlug,
		})
	})

	return listings
}

// ProfilePrice implements Site. Doctoralia prices come from the listing, so
// profile pages are never fetched.
func (d Doctoralia) ProfilePrice(_ *goquery.Document) (string, bool) {
	return "", false
}

func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return base + "/" + strings.TrimPrefix(href, "/")
}
