package payment

import (
	"fmt"

	"go.uber.org/zap"
)

// FactoryConfig carries whatever credentials are configured. Empty keys
// leave that gateway out of the registry.
type FactoryConfig struct {
	PublicBaseURL       string
	StripeSecretKey     string
	StripeWebhookSecret string
	OmisePublicKey      string
	OmiseSecretKey      string
	OmiseSourceType     string
}

// Registry holds every configured gateway and the one new payments use.
type Registry struct {
	gateways map[Mode]Gateway
	def      Mode
}

// NewRegistry builds gateways from credentials. The simulator is always
// present so simulated payments stay refundable after real keys are added.
// New payments go to Stripe when configured, then Omise, then the simulator.
func NewRegistry(cfg FactoryConfig, log *zap.Logger) (*Registry, error) {
	gws := []Gateway{NewSimulatorGateway(cfg.PublicBaseURL)}
	def := ModeSimulator

	if cfg.OmiseSecretKey != "" && cfg.OmisePublicKey != "" {
		og, err := NewOmiseGateway(OmiseConfig{
			PublicKey:     cfg.OmisePublicKey,
			SecretKey:     cfg.OmiseSecretKey,
			SourceType:    cfg.OmiseSourceType,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		gws = append(gws, og)
		def = ModeOmise
	}
	if cfg.StripeSecretKey != "" {
		gws = append(gws, NewStripeGateway(StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			PublicBaseURL: cfg.PublicBaseURL,
		}))
		def = ModeStripe
	}

	log.Info("payment gateways configured", zap.String("default", string(def)), zap.Int("count", len(gws)))
	return NewRegistryFrom(def, gws...)
}

// NewRegistryFrom assembles a registry from ready gateways.
func NewRegistryFrom(def Mode, gateways ...Gateway) (*Registry, error) {
	r := &Registry{gateways: make(map[Mode]Gateway, len(gateways)), def: def}
	for _, g := range gateways {
		r.gateways[g.Mode()] = g
	}
	if _, ok := r.gateways[def]; !ok {
		return nil, fmt.Errorf("default gateway %q not in registry", def)
	}
	return r, nil
}

// Default returns the gateway for new payments.
func (r *Registry) Default() Gateway {
	return r.gateways[r.def]
}

// ForMode returns the gateway that created payments of the given mode.
func (r *Registry) ForMode(m Mode) (Gateway, error) {
	g, ok := r.gateways[m]
	if !ok {
		return nil, ErrGatewayNotConfigured.WithCause(fmt.Errorf("mode %q", m))
	}
	return g, nil
}

// ForKind resolves the webhook route segment to a gateway.
func (r *Registry) ForKind(kind string) (Gateway, error) {
	m, ok := ParseMode(kind)
	if !ok {
		return nil, ErrGatewayNotConfigured.WithCause(fmt.Errorf("unknown kind %q", kind))
	}
	return r.ForMode(m)
}
