package search

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	httpclient "travel-planner/internal/common/http"
)

// GoogleCSE queries the Google Custom Search JSON API.
type GoogleCSE struct {
	baseURL  string
	apiKey   string
	engineID string
	client   *httpclient.Client
}

func NewGoogleCSE(baseURL, apiKey, engineID string, client *httpclient.Client) *GoogleCSE {
	return &GoogleCSE{
		baseURL:  baseURL,
		apiKey:   apiKey,
		engineID: engineID,
		client:   client,
	}
}

func (g *GoogleCSE) Name() string { return "google" }

func (g *GoogleCSE) Lookup(ctx context.Context, query string, maxResults int) (Result, error) {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return Result{}, err
	}
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(maxResults))
	u.RawQuery = params.Encode()

	var resp struct {
		Items []struct {
			Link  string `json:"link"`
			Title string `json:"title"`
			Mime  string `json:"mime"`
		} `json:"items"`
	}
	if err := g.client.GetJSON(ctx, u.String(), &resp); err != nil {
		return Result{}, err
	}

	seen := make(map[string]bool)
	var links []Link
	for _, item := range resp.Items {
		if item.Mime != "" && !strings.Contains(item.Mime, "html") {
			continue
		}
		if item.Link == "" || seen[item.Link] {
			continue
		}
		seen[item.Link] = true
		links = append(links, Link{Title: item.Title, Link: item.Link})
		if len(links) == maxResults {
			break
		}
	}
	return Links(links...), nil
}
