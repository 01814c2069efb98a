package sftp

import (
	"fmt"

	"github.com/NitronPlus/hostpilot/pkg/ssh"
	"github.com/pkg/sftp"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithBufferSize records n as the buffer size in the client's
// TransferConfig; the worker allocates its reusable buffer itself.
func WithBufferSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.config.BufferSize = n
		}
	}
}

// Client wraps an *sftp.Client together with the ssh.Client it rides on.
// A worker owns exactly one Client for its whole run and rebuilds it from
// scratch (via a fresh NewClient call over a freshly dialed ssh.Client) on
// any session-level transfer error.
type Client struct {
	sftpClient *sftp.Client
	sshClient  *ssh.Client
	config     TransferConfig
}

// NewClient opens an SFTP subsystem channel on top of an already-connected
// ssh.Client.
func NewClient(sshCli *ssh.Client, opts ...Option) (*Client, error) {
	client, err := sftp.NewClient(sshCli.SSHClient())
	if err != nil {
		return nil, fmt.Errorf("opening sftp subsystem: %w", err)
	}
	sftpCli := &Client{
		sftpClient: client,
		sshClient:  sshCli,
		config:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(sftpCli)
	}
	return sftpCli, nil
}

// SFTPClient returns the underlying *sftp.Client for rename/stat/mkdir
// and other protocol-level operations.
func (c *Client) SFTPClient() *sftp.Client {
	return c.sftpClient
}

// Config returns the transfer tuning in effect for this client.
func (c *Client) Config() TransferConfig {
	return c.config
}

// Close closes the SFTP subsystem. It does not close the underlying SSH
// connection.
func (c *Client) Close() error {
	return c.sftpClient.Close()
}

// Cwd returns the remote working directory.
func (c *Client) Cwd() (string, error) {
	return c.sftpClient.Getwd()
}

// JoinPath joins remote path elements using forward slashes, as required
// by the SFTP protocol regardless of the local OS.
func (c *Client) JoinPath(elem ...string) string {
	return c.sftpClient.Join(elem...)
}
