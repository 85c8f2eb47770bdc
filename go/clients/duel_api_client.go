package clients

import (
	"context"
	"strings"
)

const helloEndpoint = "/api/hello"

// DuelApiClient talks to the plain HTTP endpoints of the duel server
type DuelApiClient struct {
	*BaseClient
}

func NewDuelApiClient(backendURL string) *DuelApiClient {
	return &DuelApiClient{
		BaseClient: NewBaseClient(strings.TrimRight(backendURL, "/")),
	}
}

// Hello calls the liveness endpoint and returns its body as text
func (c *DuelApiClient) Hello(ctx context.Context) (string, error) {
	body, err := c.Get(ctx, helloEndpoint)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
