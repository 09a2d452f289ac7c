package search

import (
	"context"
	"net/url"
	"strings"

	httpclient "travel-planner/internal/common/http"
)

// DuckDuckGo queries the keyless DuckDuckGo Instant Answer API. An abstract
// comes back as Text, related topics as Links.
type DuckDuckGo struct {
	baseURL string
	client  *httpclient.Client
}

func NewDuckDuckGo(baseURL string, client *httpclient.Client) *DuckDuckGo {
	return &DuckDuckGo{baseURL: baseURL, client: client}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Name     string     `json:"Name"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

func (d *DuckDuckGo) Lookup(ctx context.Context, query string, maxResults int) (Result, error) {
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return Result{}, err
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")
	u.RawQuery = params.Encode()

	var resp ddgResponse
	if err := d.client.GetJSON(ctx, u.String(), &resp); err != nil {
		return Result{}, err
	}

	if text := strings.TrimSpace(resp.AbstractText); text != "" {
		if resp.AbstractURL != "" {
			text += " (" + resp.AbstractURL + ")"
		}
		return Text(text), nil
	}

	return Links(flattenTopics(resp.RelatedTopics, maxResults)...), nil
}

// flattenTopics walks grouped topics depth first, keeping order, until max links are collected.
func flattenTopics(topics []ddgTopic, max int) []Link {
	var links []Link
	var walk func([]ddgTopic)
	walk = func(ts []ddgTopic) {
		for _, t := range ts {
			if len(links) >= max {
				return
			}
			if len(t.Topics) > 0 {
				walk(t.Topics)
				continue
			}
			if t.FirstURL == "" || t.Text == "" {
				continue
			}
			links = append(links, Link{Title: t.Text, Link: t.FirstURL})
		}
	}
	walk(topics)
	return links
}
