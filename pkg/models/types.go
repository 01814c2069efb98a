package models

// Identity holds the authentication material bound to an alias.
type Identity struct {
	User       string `yaml:"user"`
	KeyPath    string `yaml:"key_path,omitempty"`
	Passphrase string `yaml:"passphrase,omitempty"`
	Password   string `yaml:"password,omitempty"`
	AuthType   string `yaml:"auth_type"` // "key" or "password"
}

// Host holds the network coordinates bound to an alias.
type Host struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Node is the alias registry's unit of lookup: one alias resolving to one
// Host and one Identity.
type Node struct {
	Alias []string `yaml:"alias,omitempty"`

	HostRef     string `yaml:"host_ref"`
	IdentityRef string `yaml:"identity_ref"`
}
