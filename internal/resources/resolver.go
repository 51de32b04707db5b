package resources

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

const maxExcerpt = 300

// Preview is the readable summary of a step resource.
type Preview struct {
	URL     string
	Title   string
	Site    string
	Excerpt string
}

// Resolver fetches resource links and extracts a short preview.
type Resolver struct {
	Client    *http.Client
	UserAgent string
	policy    *bluemonday.Policy
}

func NewResolver() *Resolver {
	return &Resolver{
		Client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		policy:    bluemonday.StrictPolicy(),
	}
}

func (r *Resolver) Resolve(ctx context.Context, rawURL string) (Preview, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Preview{}, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Preview{}, fmt.Errorf("unsupported URL scheme %q", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Preview{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.UserAgent)

	resp, err := r.Client.Do(req)
	if err != nil {
		return Preview{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Preview{}, fmt.Errorf("failed to fetch URL: status code %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return Preview{}, fmt.Errorf("failed to parse article: %w", err)
	}

	p := Preview{
		URL:     rawURL,
		Title:   r.clean(article.Title),
		Site:    r.clean(article.SiteName),
		Excerpt: r.clean(article.Excerpt),
	}
	if p.Excerpt == "" {
		p.Excerpt = r.clean(article.TextContent)
	}
	p.Excerpt = truncate(p.Excerpt, maxExcerpt)
	if p.Title == "" {
		p.Title = parsedURL.Host
	}
	return p, nil
}

func (r *Resolver) clean(s string) string {
	s = html.UnescapeString(r.policy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most limit bytes on a rune boundary.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut]) + "..."
}

// Format renders p for a chat reply.
func (p Preview) Format() string {
	var b strings.Builder
	b.WriteString(p.Title)
	if p.Site != "" && p.Site != p.Title {
		fmt.Fprintf(&b, " (%s)", p.Site)
	}
	b.WriteString("\n")
	if p.Excerpt != "" {
		b.WriteString(p.Excerpt)
		b.WriteString("\n")
	}
	b.WriteString(p.URL)
	return b.String()
}
