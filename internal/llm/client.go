package llm

import (
	"context"
	"fmt"
	"sort"

	"github.com/danshapiro/murderparty/internal/providerspec"
)

type ProviderAdapter interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// Client routes requests to registered adapters by canonical provider key.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
	defaultModel    map[string]string
	middleware      []Middleware
}

func NewClient() *Client {
	return &Client{providers: map[string]ProviderAdapter{}, defaultModel: map[string]string{}}
}

func (c *Client) Register(adapter ProviderAdapter) {
	if c.providers == nil {
		c.providers = map[string]ProviderAdapter{}
	}
	c.providers[adapter.Name()] = adapter
	if c.defaultProvider == "" {
		c.defaultProvider = adapter.Name()
	}
}

func (c *Client) SetDefaultProvider(name string) {
	c.defaultProvider = normalizeProviderName(name)
}

// SetDefaultModel sets the model used for provider when a request names none.
func (c *Client) SetDefaultModel(provider, model string) {
	if c.defaultModel == nil {
		c.defaultModel = map[string]string{}
	}
	c.defaultModel[normalizeProviderName(provider)] = model
}

func (c *Client) DefaultProvider() string { return c.defaultProvider }

// ModelFor reports the model a request for provider would use when it names none.
func (c *Client) ModelFor(provider string) string {
	prov := normalizeProviderName(provider)
	if prov == "" {
		prov = c.defaultProvider
	}
	if m := c.defaultModel[prov]; m != "" {
		return m
	}
	if spec, ok := providerspec.Builtin(prov); ok && spec.API != nil {
		return spec.API.DefaultModel
	}
	return ""
}

func (c *Client) ProviderNames() []string {
	if c == nil || len(c.providers) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.providers))
	for k := range c.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	prov := req.Provider
	if prov == "" {
		prov = c.defaultProvider
	}
	if prov == "" {
		return Response{}, &ConfigurationError{Message: "no provider specified and no default provider configured"}
	}
	prov = normalizeProviderName(prov)
	adapter, ok := c.providers[prov]
	if !ok {
		return Response{}, &ConfigurationError{Message: fmt.Sprintf("unknown provider: %s", prov)}
	}
	req.Provider = prov
	if req.Model == "" {
		req.Model = c.ModelFor(prov)
	}

	base := func(ctx context.Context, req Request) (Response, error) {
		return adapter.Complete(ctx, req)
	}
	handler := applyMiddlewareComplete(base, c.middleware)
	return handler(ctx, req)
}

// Use appends middleware to the client. Middleware is applied in registration order
// for the request phase and in reverse order for the response phase.
func (c *Client) Use(mw ...Middleware) {
	if c == nil {
		return
	}
	c.middleware = append(c.middleware, mw...)
}

func normalizeProviderName(name string) string {
	return providerspec.CanonicalProviderKey(name)
}
