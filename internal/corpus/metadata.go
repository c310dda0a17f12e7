package corpus

import (
	"regexp"
	"strings"
	"time"
)

const (
	dateInputLayout  = "02-01-2006"
	dateOutputLayout = "2006-01-02"
)

// metadataPattern matches a trailing metadata block of the form
//
//	... passage text Metadata
//	link: https://example.com/page
//	date: 15-03-2024
//
// The date group accepts two- and three-part numeric forms; whether the
// value is an actual calendar date is decided at parse time.
var metadataPattern = regexp.MustCompile(` Metadata\s*link: (https?://\S+)\s*date: (\d{2}-(?:\d{2}-)?\d{4})`)

// ExtractMetadata splits a passage into its body and metadata. When the
// block is present the link is always kept; the date is normalized to
// ISO form (2006-01-02) and dropped entirely if it does not parse as a
// day-month-year calendar date. Without a block the whole text is the
// passage and the metadata is empty.
func ExtractMetadata(text string) (string, map[string]string) {
	loc := metadataPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, map[string]string{}
	}

	meta := map[string]string{
		"link": text[loc[2]:loc[3]],
	}
	if d, err := time.Parse(dateInputLayout, text[loc[4]:loc[5]]); err == nil {
		meta["date"] = d.Format(dateOutputLayout)
	}

	clean := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	return clean, meta
}
