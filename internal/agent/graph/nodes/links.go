package nodes

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	linkLabelDocs    = "Ver CV en Google Docs"
	linkLabelDrive   = "Ver archivo en Google Drive"
	linkLabelDefault = "Ver enlace"
)

// RE2 has no backreferences: the label is matched here and the target is
// compared against it by hand, so URLs containing ")" are handled.
var duplicatedLinkLabelRe = regexp.MustCompile(`\[(https?://[^\]\s]+)\]\(`)

// RewriteDuplicatedLinks replaces markdown links whose label is the URL
// itself with a descriptive label. Other links are left alone.
func RewriteDuplicatedLinks(text string) string {
	if !strings.Contains(text, "](http") {
		return text
	}
	var b strings.Builder
	last := 0
	for _, m := range duplicatedLinkLabelRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] < last {
			continue
		}
		target := text[m[2]:m[3]]
		if !strings.HasPrefix(text[m[1]:], target+")") {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString("[" + linkLabel(target) + "](" + target + ")")
		last = m[1] + len(target) + 1
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func linkLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return linkLabelDefault
	}
	switch host := strings.ToLower(u.Hostname()); {
	case host == "docs.google.com" && strings.HasPrefix(u.Path, "/document"):
		return linkLabelDocs
	case host == "drive.google.com":
		return linkLabelDrive
	default:
		return linkLabelDefault
	}
}
