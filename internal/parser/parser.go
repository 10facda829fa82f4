// Package parser extracts structured notices from gazette markup.
//
// The bulletin site exposes three page shapes: the home page (bulletin
// number and date), per-bulletin section pages (lists of links into the
// normas site), and per-norm detail pages (full legal text). Each shape
// gets its own entry point here. A single malformed entry is skipped
// and logged; a page whose structure is unrecognizable fails with a
// boletin.ParseError.
package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/transparencia-pba/boletin-crawler/internal/boletin"
)

var (
	bulletinNumRe  = regexp.MustCompile(`N[°º]\s*(\d{5})`)
	bulletinDateRe = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`)

	// Norm URLs look like /ar-b/resolucion/2024/40202/468053.
	normPathRe = regexp.MustCompile(`^/ar-b/(resolucion|disposicion|decreto|ley)/(\d{4})/(\d+)/(\d+)$`)

	titleRe = regexp.MustCompile(`(Resolución|Disposición|Decreto|Ley)\s+\d+[/-]?\d*`)

	organismoRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)del?\s+(Ministerio[^.]+)`),
		regexp.MustCompile(`(?i)de la?\s+(Secretaría[^.]+)`),
		regexp.MustCompile(`(?i)de la?\s+(Dirección[^.]+)`),
	}

	// The operative summary usually sits between VISTO and the
	// CONSIDERANDO/POR ELLO block. RE2 has no lookahead, so the
	// terminator is consumed rather than asserted.
	vistoRe = regexp.MustCompile(`(?is)VISTO[:\s]+(.{100,500}?)(?:(?:Y\s+)?CONSIDERANDO|POR ELLO)`)
)

// Caps carried over from the front end's expectations.
const (
	rawTextCap   = 3000
	summaryCap   = 400
	organismoCap = 80
	minDetailLen = 200

	defaultOrganismo = "Gobierno de la Provincia de Buenos Aires"
)

// Candidate is one listing entry: a link to a norm detail page plus
// whatever the listing itself tells us about it.
type Candidate struct {
	ReferenceID string
	URL         string
	Type        boletin.NormType
	Year        string
	Number      string
}

// Parser turns raw gazette markup into candidates and notices.
type Parser struct {
	normasHost string
	logger     *zap.Logger
}

// New builds a Parser that accepts norm links pointing at normasURL.
func New(normasURL string, logger *zap.Logger) (*Parser, error) {
	u, err := url.Parse(normasURL)
	if err != nil {
		return nil, fmt.Errorf("parse normas url: %w", err)
	}
	return &Parser{normasHost: u.Host, logger: logger}, nil
}

// BulletinInfo scrapes the bulletin number and display date from the
// home page. A missing number is tolerated (empty string); callers fall
// back to the run date when the date is absent.
func BulletinInfo(body []byte) boletin.BulletinInfo {
	text := string(body)
	info := boletin.BulletinInfo{}
	if m := bulletinNumRe.FindStringSubmatch(text); m != nil {
		info.Number = m[1]
	}
	if m := bulletinDateRe.FindStringSubmatch(text); m != nil {
		info.DisplayDate = m[1]
	}
	return info
}

// Candidates extracts norm links from a section page. Anchors that point
// at the normas site but do not match the known path shape are skipped
// and logged; a page with no anchors to the normas site at all is
// schema drift and fails with a ParseError.
func (p *Parser) Candidates(pageURL string, body []byte) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, &boletin.ParseError{URL: pageURL, Reason: fmt.Sprintf("unreadable markup: %v", err)}
	}

	var (
		candidates []Candidate
		seen       = make(map[string]struct{})
		normLinks  int
	)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, err := url.Parse(strings.TrimSpace(href))
		if err != nil || link.Host != p.normasHost {
			return
		}
		normLinks++
		m := normPathRe.FindStringSubmatch(link.Path)
		if m == nil {
			p.logger.Warn("skipping malformed norm link",
				zap.String("page", pageURL),
				zap.String("href", href),
			)
			return
		}
		ref := fmt.Sprintf("%s/%s/%s/%s", m[1], m[2], m[3], m[4])
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		candidates = append(candidates, Candidate{
			ReferenceID: ref,
			URL:         link.String(),
			Type:        normType(m[1]),
			Year:        m[2],
			Number:      m[3],
		})
	})

	if normLinks == 0 {
		return nil, &boletin.ParseError{URL: pageURL, Reason: "no norm links found; listing layout may have changed"}
	}
	return candidates, nil
}

// Detail extracts the notice fields from a norm detail page. The page
// text is flattened the same way the front end's source site renders
// it, then mined with the known patterns. Pages too short to be a norm
// are reported as malformed so the caller can skip them.
func (p *Parser) Detail(cand Candidate, body []byte) (boletin.Notice, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return boletin.Notice{}, fmt.Errorf("unreadable detail markup for %s: %w", cand.ReferenceID, err)
	}

	text := flatten(doc)
	if len(text) < minDetailLen {
		return boletin.Notice{}, fmt.Errorf("detail page for %s too short (%d chars)", cand.ReferenceID, len(text))
	}

	title := titleRe.FindString(text)
	if title == "" {
		// The listing already told us what this is.
		title = fmt.Sprintf("%s %s/%s", cand.Type, cand.Number, cand.Year)
	}

	organismo := defaultOrganismo
	for _, re := range organismoRes {
		if m := re.FindStringSubmatch(text); m != nil {
			organismo = truncate(strings.TrimSpace(m[1]), organismoCap)
			break
		}
	}

	summary := ""
	if m := vistoRe.FindStringSubmatch(text); m != nil {
		summary = truncate(strings.TrimSpace(m[1]), summaryCap)
	}

	n := boletin.Notice{
		ReferenceID: cand.ReferenceID,
		Title:       title,
		Type:        cand.Type,
		Organismo:   organismo,
		SourceURL:   cand.URL,
		RawText:     truncate(text, rawTextCap),
		Excerpt:     summary,
	}
	boletin.Classify(&n)
	return n, nil
}

// flatten renders the document body as a single space-separated string.
func flatten(doc *goquery.Document) string {
	var parts []string
	doc.Find("script,style,noscript").Remove()
	for _, field := range strings.Fields(doc.Text()) {
		parts = append(parts, field)
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func normType(slug string) boletin.NormType {
	switch slug {
	case "resolucion":
		return boletin.NormResolucion
	case "disposicion":
		return boletin.NormDisposicion
	case "decreto":
		return boletin.NormDecreto
	case "ley":
		return boletin.NormLey
	default:
		return boletin.NormType(slug)
	}
}
