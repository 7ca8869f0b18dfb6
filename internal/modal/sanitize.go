package modal

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockedElements never reach the public page
const blockedElements = "script, style, iframe, frame, object, embed, link, meta, base, form"

// allowedSchemes may appear in href and src; scheme-less references are
// resolved against the page and always allowed.
var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

// urlNoise is removed by browsers before a URL is parsed
var urlNoise = strings.NewReplacer("\t", "", "\n", "", "\r", "")

// SanitizeContent strips active content from the popup body while keeping
// basic markup. Input that cannot be parsed is dropped.
func SanitizeContent(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}

	doc.Find(blockedElements).Remove()

	for _, n := range doc.Find("*").Nodes {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if strings.HasPrefix(key, "on") {
				continue
			}
			if (key == "href" || key == "src") && unsafeURL(a.Val) {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}

	body, err := doc.Find("body").Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(body)
}

func unsafeURL(v string) bool {
	v = strings.TrimSpace(urlNoise.Replace(v))
	u, err := url.Parse(v)
	if err != nil {
		return true
	}
	if u.Scheme == "" {
		return false
	}
	return !allowedSchemes[strings.ToLower(u.Scheme)]
}
