package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/deck-voice/internal/metadata"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
	"golang.org/x/net/html"
)

/*
Responsibilities
- Locate data blocks inside a deck
- Emit one fragment per text entry of an allowed block

Extraction Strategy
- HTML decks: the body of every <script> element is scanned
- Documents without any <script> element are scanned as raw text
- A block is `const <CATEGORY> = [ ... ];`, closed by the first `];`
- Inside a block every `<field>: "<text>"` pair is one entry

Ordering
- Blocks in document order, entries in block order

Excluded categories never pass through, even when also included.
*/

type DeckExtractor struct {
	metadataSink metadata.MetadataSink
	categories   []Category
	textField    string
	blockPattern *regexp.Regexp
	entryPattern *regexp.Regexp
}

func NewDeckExtractor(
	metadataSink metadata.MetadataSink,
	include []Category,
	exclude []Category,
	textField string,
) DeckExtractor {
	if textField == "" {
		textField = DefaultTextField
	}
	categories := effectiveCategories(include, exclude)
	return DeckExtractor{
		metadataSink: metadataSink,
		categories:   categories,
		textField:    textField,
		blockPattern: compileBlockPattern(categories),
		entryPattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(textField) + `\s*:\s*"([^"]+)"`),
	}
}

// Categories returns the categories this extractor emits, in configured order.
func (d *DeckExtractor) Categories() []Category {
	out := make([]Category, len(d.categories))
	copy(out, d.categories)
	return out
}

func (d *DeckExtractor) Extract(doc Document) ([]Fragment, failure.ClassifiedError) {
	fragments, err := d.extract(doc)
	if err != nil {
		var extractionError *ExtractionError
		errors.As(err, &extractionError)
		d.metadataSink.RecordError(
			time.Now(),
			"extractor",
			"DeckExtractor.Extract",
			mapExtractionErrorToMetadataCause(extractionError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrDocument, doc.Path),
			},
		)
		return nil, extractionError
	}
	return fragments, nil
}

func (d *DeckExtractor) extract(doc Document) ([]Fragment, error) {
	if !utf8.Valid(doc.Content) {
		return nil, &ExtractionError{
			Message:   "content is not valid UTF-8",
			Retryable: true,
			Cause:     ErrCauseNotText,
			Path:      doc.Path,
		}
	}

	scripts, err := scriptBodies(doc.Content)
	if err != nil {
		return nil, &ExtractionError{
			Message:   fmt.Sprintf("failed to parse HTML: %v", err),
			Retryable: true,
			Cause:     ErrCauseParseFailed,
			Path:      doc.Path,
		}
	}
	if len(scripts) == 0 {
		scripts = []string{string(doc.Content)}
	}

	fragments := []Fragment{}
	if d.blockPattern == nil {
		return fragments, nil
	}
	for _, script := range scripts {
		for _, block := range d.blockPattern.FindAllStringSubmatch(script, -1) {
			category := Category(block[1])
			for _, entry := range d.entryPattern.FindAllStringSubmatch(block[2], -1) {
				text := strings.TrimSpace(entry[1])
				if text == "" {
					continue
				}
				fragments = append(fragments, Fragment{
					Category: category,
					Text:     text,
					Source:   doc.Path,
				})
			}
		}
	}
	return fragments, nil
}

// scriptBodies returns the non-empty text of every <script> element, in document order.
func scriptBodies(content []byte) ([]string, error) {
	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	gqDoc := goquery.NewDocumentFromNode(root)
	var bodies []string
	gqDoc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if body := s.Text(); strings.TrimSpace(body) != "" {
			bodies = append(bodies, body)
		}
	})
	return bodies, nil
}

func compileBlockPattern(categories []Category) *regexp.Regexp {
	if len(categories) == 0 {
		return nil
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = regexp.QuoteMeta(string(c))
	}
	return regexp.MustCompile(`const\s+(` + strings.Join(names, "|") + `)\s*=\s*\[([\s\S]*?)\];`)
}

func effectiveCategories(include []Category, exclude []Category) []Category {
	excluded := make(map[Category]struct{}, len(exclude))
	for _, c := range exclude {
		excluded[c] = struct{}{}
	}
	seen := make(map[Category]struct{}, len(include))
	out := make([]Category, 0, len(include))
	for _, c := range include {
		if _, ok := excluded[c]; ok {
			continue
		}
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
