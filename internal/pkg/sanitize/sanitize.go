package sanitize

import "github.com/microcosm-cc/bluemonday"

// Sanitizer cleans user supplied markup before it is validated and stored.
type Sanitizer interface {
	Sanitize(input string) string
}

type HTML struct {
	policy *bluemonday.Policy
}

// NewHTML allows a, code, i and strong. Links keep href and title and must
// use http or https.
func NewHTML() *HTML {
	p := bluemonday.NewPolicy()
	p.AllowElements("a", "code", "i", "strong")
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)
	return &HTML{policy: p}
}

func (h *HTML) Sanitize(input string) string {
	return h.policy.Sanitize(input)
}
