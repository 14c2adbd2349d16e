// Package models defines data structures for the scraper.
package models

import "time"

// PriceRecord is one row of a market price table. All fields keep the
// text exactly as displayed on the page.
type PriceRecord struct {
	Product     string `csv:"product" json:"product"`
	Unit        string `csv:"unit" json:"unit"`
	Destination string `csv:"destination" json:"destination"`
	Category    string `csv:"category" json:"category"`
	Min         string `csv:"min" json:"min"`
	Max         string `csv:"max" json:"max"`
	Date        string `csv:"date" json:"date"`
}

// ArchiveReference is the relative path of one dated archive page.
type ArchiveReference string

// URL joins the reference onto base without any path resolution.
func (a ArchiveReference) URL(base string) string {
	return base + string(a)
}

// ArchiveURLs maps references to fetch targets, preserving order.
func ArchiveURLs(base string, refs []ArchiveReference) []string {
	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		urls = append(urls, ref.URL(base))
	}
	return urls
}

// PageResult holds the records extracted from one fetched page.
type PageResult struct {
	URL     string
	Records []*PriceRecord
}

// FailedURL is a failure-set entry tagged with the kind of error that caused it.
type FailedURL struct {
	URL       string
	ErrorType string
	Error     string
}

// PassResult is the outcome of one traversal over a URL list.
type PassResult struct {
	Pages      []PageResult
	Failed     []FailedURL
	Chunks     int
	Duplicates int
}

// SuccessCount is the number of URLs fetched and extracted without error.
func (p *PassResult) SuccessCount() int {
	if p == nil {
		return 0
	}
	return len(p.Pages)
}

// FailedURLs returns the failure set in the order failures occurred.
func (p *PassResult) FailedURLs() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Failed))
	for _, f := range p.Failed {
		out = append(out, f.URL)
	}
	return out
}

// Batches returns the per-page record slices in visit order.
func (p *PassResult) Batches() [][]*PriceRecord {
	if p == nil {
		return nil
	}
	out := make([][]*PriceRecord, 0, len(p.Pages))
	for _, page := range p.Pages {
		out = append(out, page.Records)
	}
	return out
}

// RecordCount is the total number of records across all pages.
func (p *PassResult) RecordCount() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, page := range p.Pages {
		total += len(page.Records)
	}
	return total
}

// ScraperResult holds the overall result of a scraping run.
type ScraperResult struct {
	StartTime    time.Time
	EndTime      time.Time
	ArchiveCount int
	Main         *PassResult
	Retry        *PassResult
	ErrorsByType map[string]int
	Outputs      []string
}

// SuccessCount counts successful fetches across both passes.
func (r *ScraperResult) SuccessCount() int {
	return r.Main.SuccessCount() + r.Retry.SuccessCount()
}

// PermanentFailures lists URLs that still failed after the retry pass.
func (r *ScraperResult) PermanentFailures() []string {
	if r.Retry != nil {
		return r.Retry.FailedURLs()
	}
	return r.Main.FailedURLs()
}
