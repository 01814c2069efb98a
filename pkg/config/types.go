package config

import (
	"github.com/NitronPlus/hostpilot/pkg/models"
	"github.com/NitronPlus/hostpilot/pkg/utils/concurrent"
)

// Configuration is the top-level shape persisted to the config YAML file.
type Configuration struct {
	Identities *concurrent.Map[string, models.Identity] `yaml:"identities"`
	Hosts      *concurrent.Map[string, models.Host]     `yaml:"hosts"`
	Nodes      *concurrent.Map[string, models.Node]     `yaml:"nodes"`
}

// NewConfiguration builds an empty Configuration with initialized maps.
func NewConfiguration() *Configuration {
	return &Configuration{
		Identities: concurrent.NewMap[string, models.Identity](concurrent.HashString),
		Hosts:      concurrent.NewMap[string, models.Host](concurrent.HashString),
		Nodes:      concurrent.NewMap[string, models.Node](concurrent.HashString),
	}
}

// ConfigProvider is how the rest of hostpilot reads and writes the alias
// registry. The ts transfer engine only ever uses Find/GetNode/GetHost/GetIdentity.
type ConfigProvider interface {
	GetNode(name string) (models.Node, bool)
	GetHost(name string) (models.Host, bool)
	GetIdentity(name string) (models.Identity, bool)
	AddNode(name string, node models.Node)
	AddHost(name string, host models.Host)
	AddIdentity(name string, identity models.Identity)
	DeleteNode(name string)
	ListNodes() map[string]models.Node
	Find(input string) string
}
