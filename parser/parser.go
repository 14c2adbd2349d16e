package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-prices/models"
	"golang.org/x/net/html"
)

const (
	// ArchiveSelector matches the archive links on the index page.
	ArchiveSelector = "#news-list li a"
	// RowSelector matches the price table rows on an archive page.
	RowSelector = "#news-list table tbody tr"
)

// ErrParse indicates a page did not match the expected table layout.
type ErrParse struct {
	Row int
	Err error
}

func (e ErrParse) Error() string {
	return fmt.Errorf("parse row %d: %w", e.Row, e.Err).Error()
}

func (e ErrParse) Unwrap() error {
	return e.Err
}

type column struct {
	index int
	name  string
	set   func(*models.PriceRecord, string)
}

// priceColumns maps table cells to record fields by position.
var priceColumns = []column{
	{index: 0, name: "category", set: func(r *models.PriceRecord, v string) { r.Category = v }},
	{index: 1, name: "min", set: func(r *models.PriceRecord, v string) { r.Min = v }},
	{index: 2, name: "max", set: func(r *models.PriceRecord, v string) { r.Max = v }},
	{index: 3, name: "date", set: func(r *models.PriceRecord, v string) { r.Date = v }},
}

// ExtractRecords returns one record per price table row, in document order.
// A page without matching rows yields an empty slice. A row that does not
// carry the product link and its marker span fails the whole page.
func ExtractRecords(body string) ([]*models.PriceRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	records := make([]*models.PriceRecord, 0)
	var rowErr error
	doc.Find(RowSelector).EachWithBreak(func(i int, row *goquery.Selection) bool {
		record, err := extractRow(row)
		if err != nil {
			rowErr = ErrParse{Row: i, Err: err}
			return false
		}
		records = append(records, record)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return records, nil
}

func extractRow(row *goquery.Selection) (*models.PriceRecord, error) {
	cells := row.Children()
	if cells.Length() < len(priceColumns) {
		return nil, fmt.Errorf("expected %d cells, found %d", len(priceColumns), cells.Length())
	}

	record := &models.PriceRecord{}
	if err := extractProduct(cells.Eq(0), record); err != nil {
		return nil, err
	}
	for _, col := range priceColumns {
		col.set(record, strings.TrimSpace(cells.Eq(col.index).Text()))
	}
	return record, nil
}

// extractProduct fills product, unit and destination from the first cell,
// which holds "<a>Product<span>unit, destination</span></a>".
func extractProduct(cell *goquery.Selection, record *models.PriceRecord) error {
	link := cell.Find("a").First()
	if link.Length() == 0 {
		return fmt.Errorf("%s cell has no product link", priceColumns[0].name)
	}
	marker := link.Find("span").First()
	if marker.Length() == 0 {
		return fmt.Errorf("%s cell has no unit marker", priceColumns[0].name)
	}

	var product strings.Builder
	textBefore(link.Get(0), marker.Get(0), &product)

	record.Product = strings.TrimSpace(product.String())
	record.Unit, record.Destination = SplitMarker(marker.Text())
	return nil
}

// textBefore writes the text of every node under n that precedes stop in
// document order. It reports whether stop was reached.
func textBefore(n, stop *html.Node, b *strings.Builder) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c == stop {
			return true
		}
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			continue
		}
		if textBefore(c, stop, b) {
			return true
		}
	}
	return false
}

// SplitMarker splits "unit, destination" on the first comma. Both parts are
// trimmed; a marker without a comma is all unit.
func SplitMarker(text string) (unit, destination string) {
	unit, destination, _ = strings.Cut(strings.TrimSpace(text), ",")
	return strings.TrimSpace(unit), strings.TrimSpace(destination)
}

// ParseArchives returns the href of every archive link in document order.
// Links are neither deduplicated nor validated.
func ParseArchives(body string) ([]models.ArchiveReference, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	refs := make([]models.ArchiveReference, 0)
	doc.Find(ArchiveSelector).Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		refs = append(refs, models.ArchiveReference(href))
	})
	return refs, nil
}
