package payment

import (
	"context"
	"net/url"
	"strings"
)

// WebhookRequest is the raw inbound callback before normalization.
type WebhookRequest struct {
	Gateway         string
	ContentType     string
	RawBody         []byte
	HeaderSignature string
	QueryParams     map[string]string
}

// Normalize performs content negotiation over an inbound callback and
// delegates verification and mapping to the matched adapter. JSON bodies
// carry a header signature; form bodies carry the hash inside the payload;
// bodyless GET callbacks are normalized from the query string. Adapter-level
// signature or payload failures are surfaced unchanged, never downgraded.
func Normalize(ctx context.Context, registry *Registry, req WebhookRequest) (*Event, error) {
	gateway, err := registry.Get(req.Gateway)
	if err != nil {
		return nil, err
	}

	rawBody := req.RawBody
	contentType := strings.ToLower(req.ContentType)
	if len(rawBody) == 0 && !strings.Contains(contentType, "application/json") {
		// GET-style callback: the query string is the payload.
		values := url.Values{}
		for k, v := range req.QueryParams {
			values.Set(k, v)
		}
		rawBody = []byte(values.Encode())
	}

	return gateway.HandleWebhook(ctx, rawBody, req.HeaderSignature)
}
