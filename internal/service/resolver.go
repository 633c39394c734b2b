package service

import (
	"context"
	"fmt"
	"net/url"
)

// Resolver turns a requested resource locator into a delivery locator.
// The actual retrieval backend lives behind this interface.
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (string, error)
}

// GatewayResolver builds delivery locators on a configured gateway endpoint,
// passing the requested locator through as a query parameter. It performs no
// network I/O itself; the gateway serves the content when the link is opened.
type GatewayResolver struct {
	BaseURL string
}

// Resolve validates the requested locator and returns the gateway link.
func (r GatewayResolver) Resolve(_ context.Context, sourceURL string) (string, error) {
	src, err := url.Parse(sourceURL)
	if err != nil || src.Host == "" || (src.Scheme != "http" && src.Scheme != "https") {
		return "", fmt.Errorf("unsupported resource locator: %q", sourceURL)
	}
	base, err := url.Parse(r.BaseURL)
	if err != nil {
		return "", fmt.Errorf("resolver base url: %w", err)
	}
	q := base.Query()
	q.Set("src", src.String())
	base.RawQuery = q.Encode()
	return base.String(), nil
}
