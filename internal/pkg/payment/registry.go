package payment

import (
	"log"
	"sort"
	"strings"

	"github.com/adeelqureshi/taleempay/app/models"
	"github.com/adeelqureshi/taleempay/internal/pkg/env"
)

// Registry resolves gateway names to configured adapter instances. Gateways
// whose credentials are missing are simply not registered; requests for them
// fail with ErrGatewayUnavailable.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

func (r *Registry) Register(g Gateway) {
	r.gateways[strings.ToLower(g.Name())] = g
}

// Get resolves a gateway by name.
func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, newGatewayError(name, ErrGatewayUnavailable, "gateway not configured")
	}
	return g, nil
}

// Names lists the registered gateway names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromEnv builds the registry from environment credentials. Each
// adapter constructor rejects incomplete credentials, so a partially
// configured gateway stays unavailable instead of failing at request time.
func NewRegistryFromEnv() *Registry {
	registry := NewRegistry()
	environment := env.GetEnv("PAYMENT_ENVIRONMENT", "sandbox")
	publicBase := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")

	hosted, err := NewHostedCheckoutAdapter(HostedCheckoutConfig{
		APIKey:        env.GetEnv("SAFEPAY_API_KEY", ""),
		WebhookSecret: env.GetEnv("SAFEPAY_WEBHOOK_SECRET", ""),
		Environment:   environment,
		WebhookURL:    publicBase + "/api/v1/payments/webhook/safepay",
	})
	if err != nil {
		log.Printf("payment registry: safepay not registered: %v", err)
	} else {
		registry.Register(hosted)
	}

	jazzcash, err := NewRedirectFormAdapter(RedirectFormConfig{
		Brand:         models.GatewayJazzCash,
		MerchantID:    env.GetEnv("JAZZCASH_MERCHANT_ID", ""),
		Password:      env.GetEnv("JAZZCASH_PASSWORD", ""),
		IntegritySalt: env.GetEnv("JAZZCASH_INTEGRITY_SALT", ""),
		Environment:   environment,
	})
	if err != nil {
		log.Printf("payment registry: jazzcash not registered: %v", err)
	} else {
		registry.Register(jazzcash)
	}

	easypaisa, err := NewRedirectFormAdapter(RedirectFormConfig{
		Brand:         models.GatewayEasypaisa,
		MerchantID:    env.GetEnv("EASYPAISA_MERCHANT_ID", ""),
		Password:      env.GetEnv("EASYPAISA_PASSWORD", ""),
		IntegritySalt: env.GetEnv("EASYPAISA_INTEGRITY_SALT", ""),
		Environment:   environment,
	})
	if err != nil {
		log.Printf("payment registry: easypaisa not registered: %v", err)
	} else {
		registry.Register(easypaisa)
	}

	return registry
}
