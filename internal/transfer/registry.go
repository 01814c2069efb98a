package transfer

import "github.com/NitronPlus/hostpilot/pkg/config"

// AliasRegistry is the read-only view of the alias store the Resolver
// consults. It is satisfied by an adapter over pkg/config.ConfigProvider;
// tests supply a map-backed fake instead.
type AliasRegistry interface {
	Lookup(alias string) (AliasEntry, bool)
}

type providerRegistry struct {
	provider config.ConfigProvider
}

// NewProviderRegistry adapts a pkg/config.ConfigProvider into an
// AliasRegistry, trimming Node/Host/Identity down to the flat AliasEntry
// shape the Resolver needs.
func NewProviderRegistry(provider config.ConfigProvider) AliasRegistry {
	return &providerRegistry{provider: provider}
}

func (r *providerRegistry) Lookup(alias string) (AliasEntry, bool) {
	nodeID := r.provider.Find(alias)
	if nodeID == "" {
		return AliasEntry{}, false
	}
	host, ok := r.provider.GetHost(nodeID)
	if !ok {
		return AliasEntry{}, false
	}
	identity, ok := r.provider.GetIdentity(nodeID)
	if !ok {
		return AliasEntry{}, false
	}
	return AliasEntry{
		Alias:    alias,
		User:     identity.User,
		Host:     host.Address,
		Port:     host.Port,
		AuthType: identity.AuthType,
		KeyPath:  identity.KeyPath,
		Password: identity.Password,
	}, true
}

// mapRegistry is the hand-written fake used by internal/transfer tests.
type mapRegistry map[string]AliasEntry

func (m mapRegistry) Lookup(alias string) (AliasEntry, bool) {
	e, ok := m[alias]
	return e, ok
}
