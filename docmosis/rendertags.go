package docmosis

import (
	"context"
	"fmt"

	"github.com/kroma-labs/docmosis-go/httpclient"
)

const serviceGetRenderTags = "getRenderTags"

// RenderTag is the usage of one render tag over a period.
type RenderTag struct {
	Tag   string `json:"tag"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Count int64  `json:"count"`
	Pages int64  `json:"pages,omitempty"`
	Bytes int64  `json:"bytes,omitempty"`
}

// RenderTagsRequest queries usage statistics of render tags.
type RenderTagsRequest struct {
	// Tags restricts the result to these tags. Empty returns all tags.
	Tags []string

	// Year and Month select the period. Zero means the current one.
	Year  int
	Month int

	// PadBlanks includes tags without activity in the period.
	PadBlanks bool
}

// RenderTagsResponse holds the statistics of a successful call.
type RenderTagsResponse struct {
	httpclient.Envelope
	RenderTags []RenderTag
}

// GetRenderTags returns render tag statistics.
func (c *Client) GetRenderTags(ctx context.Context, req RenderTagsRequest) (*RenderTagsResponse, error) {
	if req.Month < 0 || req.Month > 12 {
		return nil, &Error{Op: serviceGetRenderTags, Err: fmt.Errorf("month out of range: %d", req.Month)}
	}

	params := &httpclient.Params{}
	setList(params, "tags", req.Tags)
	if req.Year > 0 {
		params.Set("year", httpclient.Int(req.Year))
	}
	if req.Month > 0 {
		params.Set("month", httpclient.Int(req.Month))
	}
	setBool(params, "padBlanks", req.PadBlanks)

	env, err := c.execute(ctx, serviceGetRenderTags, params)
	if err != nil {
		return nil, err
	}

	var body struct {
		RenderTags []RenderTag `json:"renderTags"`
	}
	if err := decode(serviceGetRenderTags, env, &body); err != nil {
		return nil, err
	}
	return &RenderTagsResponse{Envelope: *env, RenderTags: body.RenderTags}, nil
}
