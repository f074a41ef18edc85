package instructions

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const brickUpstream = "brickinstructions"

// Images is the list of scanned instruction pages for a set.
type Images struct {
	SetNumber string   `json:"set_number"`
	Success   bool     `json:"success"`
	Images    []string `json:"images"`
	Count     int      `json:"count"`
	URL       string   `json:"url"`
	Error     string   `json:"error,omitempty"`
}

// BrickInstructionsURL returns the brickinstructions.com page of a set.
func (c *Client) BrickInstructionsURL(setNumber string) string {
	return c.brickBase + "/lego_instructions/set/" + url.PathEscape(setNumber)
}

// FetchImages scrapes the image URLs inside the page's instructions container.
// Thumbnail URLs are rewritten to their full-size counterparts.
func (c *Client) FetchImages(ctx context.Context, setNumber string) *Images {
	result := &Images{
		SetNumber: setNumber,
		Images:    []string{},
		URL:       c.BrickInstructionsURL(setNumber),
	}

	status, body, err := c.fetchPage(ctx, result.URL, brickUpstream)
	if err != nil {
		result.Error = fmt.Sprintf("network error: %v", err)
		return result
	}
	if status != http.StatusOK {
		result.Error = fmt.Sprintf("page not found (status: %d)", status)
		return result
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Sprintf("parsing error: %v", err)
		return result
	}

	container := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && attr(n, "id") == "instructionsContainer"
	})
	if container == nil {
		result.Error = "instructions container not found"
		return result
	}

	walk(container, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "img" {
			return
		}
		if src := attr(n, "src"); src != "" {
			result.Images = append(result.Images, c.imageURL(src))
		}
	})

	if len(result.Images) == 0 {
		result.Error = "no instruction images found"
		return result
	}

	result.Success = true
	result.Count = len(result.Images)
	c.logger.Debug("scraped instruction images", "set_number", setNumber, "count", result.Count)
	return result
}

// imageURL makes src absolute against the brickinstructions host and swaps
// thumbnails for full-size pages.
func (c *Client) imageURL(src string) string {
	switch {
	case strings.HasPrefix(src, "/"):
		src = c.brickBase + src
	case !strings.HasPrefix(src, "http"):
		src = c.brickBase + "/" + src
	}
	return strings.ReplaceAll(src, "thumbnails", "instructions")
}
