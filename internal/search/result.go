package search

import (
	"strconv"
	"strings"
)

const (
	// NoResultsSentinel replaces the live info whenever a lookup fails or finds nothing.
	NoResultsSentinel = "No search results found."
	// UnknownFormatSentinel is returned for a Result whose kind is not recognised.
	UnknownFormatSentinel = "Unknown format for search results."
)

// Kind tags which shape a backend produced.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindLinks
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindLinks:
		return "links"
	default:
		return "unknown"
	}
}

// Link is one ranked search hit.
type Link struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Result is the tagged variant every Backend returns. Only the field matching
// Kind is meaningful.
type Result struct {
	Kind  Kind
	Text  string
	Links []Link
}

func Empty() Result {
	return Result{Kind: KindEmpty}
}

func Text(s string) Result {
	return Result{Kind: KindText, Text: s}
}

func Links(links ...Link) Result {
	if len(links) == 0 {
		return Empty()
	}
	return Result{Kind: KindLinks, Links: links}
}

// Normalize renders a Result as the single string the stages consume.
func Normalize(r Result) string {
	switch r.Kind {
	case KindText:
		return r.Text
	case KindLinks:
		var b strings.Builder
		for i, l := range r.Links {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(strconv.Itoa(i + 1))
			b.WriteString(". ")
			b.WriteString(l.Title)
			b.WriteString(": ")
			b.WriteString(l.Link)
		}
		return b.String()
	case KindEmpty:
		return NoResultsSentinel
	default:
		return UnknownFormatSentinel
	}
}
