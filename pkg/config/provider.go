package config

import (
	"fmt"

	"github.com/NitronPlus/hostpilot/pkg/models"
	"github.com/NitronPlus/hostpilot/pkg/utils/concurrent"
)

// Provider implements ConfigProvider over a Configuration, maintaining a
// lookup index from every known alias string (user@host:port, and any
// explicit Node.Alias) to its canonical node id.
type Provider struct {
	cfg         *Configuration
	lookupIndex *concurrent.Map[string, string]
}

// NewProvider builds a Provider and indexes every node already in cfg.
func NewProvider(cfg *Configuration) *Provider {
	p := &Provider{
		cfg:         cfg,
		lookupIndex: concurrent.NewMap[string, string](concurrent.HashString),
	}
	for _, nodeID := range cfg.Nodes.Keys() {
		p.index(nodeID)
	}
	return p
}

func (p *Provider) index(nodeID string) {
	node, ok := p.GetNode(nodeID)
	if !ok {
		return
	}
	identity, hasIdentity := p.GetIdentity(nodeID)
	host, hasHost := p.GetHost(nodeID)

	p.lookupIndex.Set(nodeID, nodeID)
	if hasIdentity && hasHost && identity.User != "" {
		p.lookupIndex.Set(fmt.Sprintf("%s@%s:%d", identity.User, host.Address, host.Port), nodeID)
	}
	for _, alias := range node.Alias {
		if alias != "" {
			p.lookupIndex.Set(alias, nodeID)
		}
	}
}

// Find returns the canonical node id bound to input, or "" if none matches.
func (p *Provider) Find(input string) string {
	nodeID, _ := p.lookupIndex.Get(input)
	return nodeID
}

func (p *Provider) GetNode(nodeID string) (models.Node, bool) {
	return p.cfg.Nodes.Get(nodeID)
}

func (p *Provider) GetHost(nodeID string) (models.Host, bool) {
	if node, ok := p.cfg.Nodes.Get(nodeID); ok {
		return p.cfg.Hosts.Get(node.HostRef)
	}
	return models.Host{}, false
}

func (p *Provider) GetIdentity(nodeID string) (models.Identity, bool) {
	if node, ok := p.cfg.Nodes.Get(nodeID); ok {
		return p.cfg.Identities.Get(node.IdentityRef)
	}
	return models.Identity{}, false
}

func (p *Provider) AddNode(nodeID string, node models.Node) {
	p.cfg.Nodes.Set(nodeID, node)
	p.index(nodeID)
}

func (p *Provider) AddHost(hostID string, host models.Host) {
	p.cfg.Hosts.Set(hostID, host)
}

func (p *Provider) AddIdentity(identityID string, identity models.Identity) {
	p.cfg.Identities.Set(identityID, identity)
}

func (p *Provider) DeleteNode(nodeID string) {
	if _, ok := p.cfg.Nodes.Get(nodeID); !ok {
		return
	}
	p.cfg.Nodes.Remove(nodeID)
	for _, key := range p.lookupIndex.Keys() {
		if val, ok := p.lookupIndex.Get(key); ok && val == nodeID {
			p.lookupIndex.Remove(key)
		}
	}
}

func (p *Provider) ListNodes() map[string]models.Node {
	nodes := make(map[string]models.Node)
	for _, k := range p.cfg.Nodes.Keys() {
		if v, ok := p.cfg.Nodes.Get(k); ok {
			nodes[k] = v
		}
	}
	return nodes
}
