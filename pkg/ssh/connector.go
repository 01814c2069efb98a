package ssh

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/NitronPlus/hostpilot/pkg/config"
	"github.com/NitronPlus/hostpilot/pkg/models"
	"github.com/NitronPlus/hostpilot/pkg/utils/concurrent"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/singleflight"
)

// Connector dials connections by node name and caches them for reuse.
// No command in hostpilot calls it: the alias "check" subcommand and the
// transfer engine both dial through internal/transfer.BuildSession, and
// each transfer worker owns an exclusive connection for its whole run.
type Connector struct {
	Config  config.ConfigProvider
	clients *concurrent.Map[string, *ssh.Client]
	sf      singleflight.Group
}

// NewConnector builds a Connector backed by cfg.
func NewConnector(cfg config.ConfigProvider) *Connector {
	return &Connector{
		Config:  cfg,
		clients: concurrent.NewMap[string, *ssh.Client](concurrent.HashString),
	}
}

// Connect resolves nodeName to a node/host/identity triple and returns a
// connected Client, reusing a cached connection when one already exists.
func (c *Connector) Connect(ctx context.Context, nodeName string) (*Client, error) {
	if cached, ok := c.clients.Get(nodeName); ok {
		node, _ := c.Config.GetNode(nodeName)
		return NewClient(cached, &node), nil
	}

	result, err, _ := c.sf.Do(nodeName, func() (interface{}, error) {
		if cached, ok := c.clients.Get(nodeName); ok {
			node, _ := c.Config.GetNode(nodeName)
			return NewClient(cached, &node), nil
		}

		node, ok := c.Config.GetNode(nodeName)
		if !ok {
			return nil, fmt.Errorf("node not found: %s", nodeName)
		}
		host, ok := c.Config.GetHost(nodeName)
		if !ok {
			return nil, fmt.Errorf("host ref %q not found for node %q", node.HostRef, nodeName)
		}
		identity, ok := c.Config.GetIdentity(nodeName)
		if !ok {
			return nil, fmt.Errorf("identity ref %q not found for node %q", node.IdentityRef, nodeName)
		}

		sshConfig, err := buildSSHConfig(identity)
		if err != nil {
			return nil, fmt.Errorf("building ssh config for %q: %w", nodeName, err)
		}

		targetAddr := fmt.Sprintf("%s:%d", host.Address, host.Port)
		dialer := &net.Dialer{Timeout: 10 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", targetAddr)
		if err != nil {
			return nil, fmt.Errorf("dialing %q (%s): %w", nodeName, targetAddr, err)
		}

		ncc, chans, reqs, err := ssh.NewClientConn(conn, targetAddr, sshConfig)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("ssh handshake with %q: %w", nodeName, err)
		}
		rawClient := ssh.NewClient(ncc, chans, reqs)
		c.clients.Set(nodeName, rawClient)
		return NewClient(rawClient, &node), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Client), nil
}

// CloseAll closes every cached connection.
func (c *Connector) CloseAll() {
	c.clients.IterCb(func(_ string, client *ssh.Client) bool {
		client.Close()
		return true
	})
	c.clients.Clear()
}

// buildSSHConfig constructs an ssh.ClientConfig from an identity by routing
// through the AuthMethod abstraction, so password and key auth share one
// code path with pkg/ssh/auth.go instead of duplicating the switch inline.
func buildSSHConfig(id models.Identity) (*ssh.ClientConfig, error) {
	var method AuthMethod
	switch id.AuthType {
	case "password":
		if id.Password == "" {
			return nil, fmt.Errorf("auth type is password but password is empty")
		}
		method = &PasswordAuth{Password: id.Password}
	case "key":
		if id.KeyPath == "" {
			return nil, fmt.Errorf("auth type is key but key_path is empty")
		}
		method = &KeyAuth{Path: expandHomeDir(id.KeyPath), Passphrase: id.Passphrase}
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", id.AuthType)
	}

	authMethod, err := method.GetMethod()
	if err != nil {
		return nil, fmt.Errorf("building auth method: %w", err)
	}

	return &ssh.ClientConfig{
		User:            id.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         15 * time.Second,
	}, nil
}

func expandHomeDir(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}
