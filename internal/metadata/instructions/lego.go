package instructions

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/html"
)

const legoUpstream = "lego"

// Availability reports whether lego.com lists instructions for a set.
type Availability struct {
	SetNumber       string `json:"set_number"`
	HasInstructions bool   `json:"has_instructions"`
	StatusCode      int    `json:"status_code,omitempty"`
	URL             string `json:"url"`
	Error           string `json:"error,omitempty"`
}

// LegoURL returns the lego.com building-instructions page of a set.
func (c *Client) LegoURL(setNumber string) string {
	return c.legoBase + "/en-us/service/building-instructions/" + url.PathEscape(setNumber)
}

// CheckAvailability looks for the instruction selector heading on the set's
// lego.com page. Fetch and parse failures are reported in the result, not as errors:
// an unreachable page means no instructions are known.
func (c *Client) CheckAvailability(ctx context.Context, setNumber string) *Availability {
	result := &Availability{
		SetNumber: setNumber,
		URL:       c.LegoURL(setNumber),
	}

	status, body, err := c.fetchPage(ctx, result.URL, legoUpstream)
	if err != nil {
		c.logger.Debug("instructions check failed", "set_number", setNumber, "error", err)
		result.Error = err.Error()
		return result
	}

	result.StatusCode = status
	if status != http.StatusOK {
		return result
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Sprintf("parsing error: %v", err)
		return result
	}

	result.HasInstructions = findNode(doc, func(n *html.Node) bool {
		return attr(n, "data-test") == "select-instruction-heading"
	}) != nil

	return result
}
