package docmosis

import (
	"context"

	"github.com/kroma-labs/docmosis-go/httpclient"
)

const servicePing = "ping"

// Ping checks that the service is reachable and accepts the access key.
func (c *Client) Ping(ctx context.Context) (*StatusResponse, error) {
	env, err := c.execute(ctx, servicePing, &httpclient.Params{})
	if err != nil {
		return nil, err
	}
	discard(env)
	return &StatusResponse{Envelope: *env}, nil
}
