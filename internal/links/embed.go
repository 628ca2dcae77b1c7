package links

import (
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"
)

// AnchorOptions customizes the embeddable anchor tag produced for a link.
// All fields are optional.
type AnchorOptions struct {
	Text  string            // display text, defaults to the short URL
	Class string            // CSS class attribute
	UTM   map[string]string // utm_* overrides appended to the short URL
}

// utmKeys is the accepted set of UTM override keys, in output order.
var utmKeys = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"}

// FormatAnchorTag renders an HTML anchor pointing at the link's short URL.
// Pure formatting, no I/O; callable from any templating layer.
func FormatAnchorTag(link *Link, baseURL string, opts AnchorOptions) string {
	href := link.ShortURL(baseURL)

	if len(opts.UTM) > 0 {
		params := url.Values{}
		for _, key := range utmKeys {
			if value := opts.UTM[key]; value != "" {
				params.Set(key, value)
			}
		}
		// Tolerate non-standard keys the caller insists on
		extras := make([]string, 0, len(opts.UTM))
		for key, value := range opts.UTM {
			if strings.HasPrefix(key, "utm_") && !isStandardUTMKey(key) && value != "" {
				extras = append(extras, key)
			}
		}
		sort.Strings(extras)
		for _, key := range extras {
			params.Set(key, opts.UTM[key])
		}
		if encoded := params.Encode(); encoded != "" {
			href = href + "?" + encoded
		}
	}

	text := opts.Text
	if text == "" {
		text = href
	}

	var b strings.Builder
	b.WriteString(`<a href="`)
	b.WriteString(html.EscapeString(href))
	b.WriteString(`"`)
	if opts.Class != "" {
		fmt.Fprintf(&b, ` class="%s"`, html.EscapeString(opts.Class))
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(text))
	b.WriteString("</a>")
	return b.String()
}

func isStandardUTMKey(key string) bool {
	for _, k := range utmKeys {
		if k == key {
			return true
		}
	}
	return false
}
