package scraper

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Ana Lima", "Ana L."},
		{"Ana Maria de Souza", "Ana S."},
		{"Ana", "Ana"},
		{"  ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AnonymizeName(tt.input), "AnonymizeName(%q)", tt.input)
	}
}

func TestProfileIDFromURL(t *testing.T) {
	assert.Equal(t, "ana-lima", profileIDFromURL("https://example.com/psicologo/ana-lima"))
	assert.Equal(t, "ana-lima", profileIDFromURL("https://example.com/psicologo/ana-lima/"))
}

func TestDoctoraliaParseListing(t *testing.T) {
	html := `<html><body>
	<div class="card">
		<a href="/psicologo/ana-lima">Ana Lima</a>
		<span>Consulta Psicologia · R$ 250</span>
	</div>
	<div class="card">
		<a href="/psicologo/bruno-melo">Bruno Melo</a>
		<span>Consultar valores</span>
	</div>
	<div class="card">
		<a href="/psicologo/ana-lima">32 opiniões</a>
	</div>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	site := Doctoralia{Specialty: "psicologo"}
	listings := site.ParseListing(doc, "sao-paulo-sp")

	require.Len(t, listings, 2)
	assert.Equal(t, "Ana Lima", listings[0].Name)
	assert.Equal(t, "https://www.doctoralia.com.br/psicologo/ana-lima", listings[0].ProfileURL)
	assert.Equal(t, "R$ 250", listings[0].RawPrice)
	assert.Equal(t, "sao-paulo-sp", listings[0].CitySlug)

	// No currency amount on the card: price stays empty, row still kept.
	assert.Equal(t, "Bruno Melo", listings[1].Name)
	assert.Empty(t, listings[1].RawPrice)
}

func TestBoaConsultaProfilePrice(t *testing.T) {
	html := `<html><body><h1>Ana Lima</h1><p>Valor da consulta: R$ 1.234,56</p></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	price, ok := BoaConsulta{}.ProfilePrice(doc)
	assert.True(t, ok)
	assert.Equal(t, "R$ 1.234,56", price)
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := newWorkerPool(2, 0)

	var active, peak int32
	var mu sync.Mutex

	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			n := atomic.AddInt32(&active, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		})
	}
	pool.Wait()

	assert.LessOrEqual(t, peak, int32(2))
}

func TestWorkerPoolSpacesRequests(t *testing.T) {
	interval := 20 * time.Millisecond
	pool := newWorkerPool(4, interval)

	var mu sync.Mutex
	var stamps []time.Time

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	require.Len(t, stamps, 3)
	// Three job bodies spaced at least one interval apart span two
	// intervals end to end.
	first, last := stamps[0], stamps[0]
	for _, s := range stamps[1:] {
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), 2*interval-5*time.Millisecond)
}
