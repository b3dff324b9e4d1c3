// Package citation renders evidence provenance as display strings.
package citation

import (
	"fmt"

	"github.com/tjfontaine/uda/internal/core/domain"
)

// Unknown is used when an item carries neither a source URI nor a doc id.
const Unknown = "unknown"

// Format returns one citation per item, numbered from 1 in input order:
//
//	[1] internal://docs/uda/overview.md :: UDA Overview
//
// The source is the item's URI, else its doc id, else Unknown. The heading
// suffix is omitted when the heading is empty.
func Format(items []domain.EvidenceItem) []string {
	cites := make([]string, 0, len(items))
	for i, item := range items {
		cites = append(cites, formatOne(i+1, item))
	}
	return cites
}

func formatOne(idx int, item domain.EvidenceItem) string {
	src := item.SourceURI
	if src == "" {
		src = item.DocID
	}
	if src == "" {
		src = Unknown
	}
	frag := fmt.Sprintf("[%d] %s", idx, src)
	if item.Heading != "" {
		frag += " :: " + item.Heading
	}
	return frag
}
