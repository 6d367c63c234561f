package feed

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// stripTags returns the visible text of an HTML fragment with whitespace collapsed.
func stripTags(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// firstImageSrc returns the src of the first <img> in an HTML fragment.
func firstImageSrc(fragment string) string {
	if !strings.Contains(fragment, "<img") && !strings.Contains(fragment, "<IMG") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var src string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v := strings.TrimSpace(s.AttrOr("src", ""))
		if v == "" || strings.HasPrefix(v, "data:") {
			return true
		}
		src = v
		return false
	})
	return src
}

// isAbsoluteHTTP reports whether raw is an absolute http(s) URL with a host.
func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// resolveURL resolves href against base. It returns "" unless the result is absolute http(s).
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if ref.IsAbs() {
		if isAbsoluteHTTP(href) {
			return ref.String()
		}
		return ""
	}

	if base == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil || !isAbsoluteHTTP(base) {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
