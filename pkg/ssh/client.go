package ssh

import (
	"github.com/NitronPlus/hostpilot/pkg/models"
	"golang.org/x/crypto/ssh"
)

// Client wraps an established SSH connection bound to the node it was
// dialed for. Each transfer-engine worker owns one exclusively for the
// lifetime of its run and never shares it with another goroutine.
type Client struct {
	sshClient *ssh.Client
	node      *models.Node
}

func NewClient(raw *ssh.Client, node *models.Node) *Client {
	return &Client{
		sshClient: raw,
		node:      node,
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.sshClient.Close()
}

// SSHClient exposes the underlying ssh.Client, e.g. to open an SFTP
// subsystem channel on top of it.
func (c *Client) SSHClient() *ssh.Client {
	return c.sshClient
}

// Node returns the node configuration this client was connected for.
func (c *Client) Node() *models.Node {
	return c.node
}
