package shorts

import (
	"encoding/json"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_shorts/internal/engine"
)

// Detail page field extraction.
// Each field has an ordered list of strategies, one per location the value
// has been observed at over time. The first non-empty match wins.

// Page is one detail page under extraction.
// The HTML tree is parsed at most once, and only if a selector strategy runs.
type Page struct {
	HTML string

	once sync.Once
	doc  *goquery.Document
}

// NewPage wraps raw detail page HTML.
func NewPage(html string) *Page {
	return &Page{HTML: html}
}

// Doc returns the parsed document, or nil if the page is not parseable.
func (p *Page) Doc() *goquery.Document {
	p.once.Do(func() {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
		if err != nil {
			slog.Debug("shorts: html parse failed", slog.Any("error", err))
			return
		}
		p.doc = doc
	})
	return p.doc
}

// Strategy attempts to extract one value from a page.
type Strategy interface {
	Extract(p *Page) (string, bool)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(p *Page) (string, bool)

func (f StrategyFunc) Extract(p *Page) (string, bool) { return f(p) }

// regexStrategy returns capture group 1 of the first match, decoded.
type regexStrategy struct {
	re     *regexp.Regexp
	decode func(string) string
}

func (s regexStrategy) Extract(p *Page) (string, bool) {
	m := s.re.FindStringSubmatch(p.HTML)
	if len(m) < 2 {
		return "", false
	}
	v := m[1]
	if s.decode != nil {
		v = s.decode(v)
	}
	return v, v != ""
}

// selectorStrategy reads an attribute (or the text when attr is empty)
// of the first element matching a CSS selector.
type selectorStrategy struct {
	selector string
	attr     string
}

func (s selectorStrategy) Extract(p *Page) (string, bool) {
	doc := p.Doc()
	if doc == nil {
		return "", false
	}
	sel := doc.Find(s.selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	if s.attr == "" {
		v := sel.Text()
		return v, v != ""
	}
	v, ok := sel.Attr(s.attr)
	return v, ok && v != ""
}

// jsonStringValue matches the body of a JSON string literal, escapes included.
const jsonStringValue = `((?:[^"\\]|\\.)*)`

// jsonKey matches "key":"value" anywhere in the embedded page data.
func jsonKey(key string) Strategy {
	return regexStrategy{
		re:     regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `":"` + jsonStringValue + `"`),
		decode: decodeJSONString,
	}
}

// htmlPattern matches raw markup; the capture is entity-unescaped.
func htmlPattern(pattern string) Strategy {
	return regexStrategy{re: regexp.MustCompile(pattern), decode: html.UnescapeString}
}

// decodeJSONString resolves JSON escapes (&, \") in a captured literal body.
func decodeJSONString(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &s); err != nil {
		return raw
	}
	return s
}

// field is one extracted output column.
type field struct {
	name       string
	strategies []Strategy
	clean      func(string) string
	fallback   string
}

func (f field) extract(p *Page) string {
	for _, s := range f.strategies {
		v, ok := s.Extract(p)
		if !ok {
			continue
		}
		if f.clean != nil {
			v = f.clean(v)
		} else {
			v = strings.TrimSpace(v)
		}
		if v != "" {
			return v
		}
	}
	slog.Debug("shorts: no strategy matched, using default", slog.String("field", f.name))
	return f.fallback
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "- YouTube")
	return strings.TrimSpace(s)
}

var (
	titleField = field{
		name: "title",
		strategies: []Strategy{
			htmlPattern(`<meta name="title" content="([^"]*)"`),
			htmlPattern(`(?is)<title[^>]*>(.*?)</title>`),
			selectorStrategy{selector: `meta[property="og:title"]`, attr: "content"},
		},
		clean:    cleanTitle,
		fallback: engine.UnknownTitle,
	}
	channelField = field{
		name: "channel",
		strategies: []Strategy{
			jsonKey("ownerName"),
			jsonKey("author"),
			htmlPattern(`<link itemprop="name" content="([^"]*)"`),
			selectorStrategy{selector: `[itemprop="author"] [itemprop="name"]`, attr: "content"},
		},
		fallback: engine.UnknownChannel,
	}
	viewsField = field{
		name: "views",
		strategies: []Strategy{
			regexStrategy{
				re:     regexp.MustCompile(`"shortViewCountText":\{"simpleText":"` + jsonStringValue + `"\}`),
				decode: decodeJSONString,
			},
			jsonKey("viewCount"),
			selectorStrategy{selector: `meta[itemprop="interactionCount"]`, attr: "content"},
		},
		fallback: engine.NotAvailable,
	}
	publishDateField = field{
		name: "publish_date",
		strategies: []Strategy{
			jsonKey("publishDate"),
			htmlPattern(`itemprop="datePublished" content="([^"]*)"`),
			jsonKey("uploadDate"),
		},
		fallback: engine.NotAvailable,
	}
)

// Fields is the total output of ExtractFields: every member is set,
// with the field's sentinel when nothing matched.
type Fields struct {
	Title       string
	Channel     string
	Views       string
	PublishDate string
}

// ExtractFields runs every field's strategy list against one detail page.
// Pure function of its input; safe to call concurrently.
func ExtractFields(html string) Fields {
	p := NewPage(html)
	return Fields{
		Title:       titleField.extract(p),
		Channel:     channelField.extract(p),
		Views:       viewsField.extract(p),
		PublishDate: publishDateField.extract(p),
	}
}
