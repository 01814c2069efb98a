package transfer

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NitronPlus/hostpilot/pkg/models"
	hostssh "github.com/NitronPlus/hostpilot/pkg/ssh"
	"golang.org/x/crypto/ssh"
)

const (
	dialTimeout = 10 * time.Second
	ioTimeout   = 30 * time.Second
)

// orderedKeyNames is the fixed preference order the Auth & Session
// Builder tries when the alias doesn't pin an explicit credential: no
// ssh-agent dependency, matching original_source.
var orderedKeyNames = []string{"id_ed25519", "id_rsa", "id_ecdsa"}

// BuildSession implements connectAndAuth (§4.2): TCP dial with timeout,
// SSH handshake, authentication.
func BuildSession(ctx context.Context, alias AliasEntry) (*hostssh.Client, error) {
	addr := fmt.Sprintf("%s:%d", alias.Host, alias.Port)
	if alias.Host == "" {
		return nil, NewTransferError(SshNoAddress, "no address configured for alias: "+alias.Alias, WithAlias(alias.Alias))
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, NewTransferError(SshNoAddress, "failed to reach "+addr, WithAddr(addr), WithErr(err))
	}
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	sshConfig, err := buildClientConfig(alias)
	if err != nil {
		conn.Close()
		return nil, err
	}

	ncc, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		conn.Close()
		if isAuthError(err) {
			return nil, NewTransferError(SshAuthFailed, "ssh authentication failed for "+addr, WithAddr(addr), WithErr(err))
		}
		return nil, NewTransferError(SshHandshakeFailed, "ssh handshake failed for "+addr, WithAddr(addr), WithErr(err))
	}
	rawClient := ssh.NewClient(ncc, chans, reqs)

	node := &models.Node{Alias: []string{alias.Alias}}
	return hostssh.NewClient(rawClient, node), nil
}

func isAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

// buildClientConfig honors an alias's explicit credential when set
// (password or a specific key path), otherwise falls back to probing
// the fixed-order default key files.
func buildClientConfig(alias AliasEntry) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod

	authType := alias.AuthType
	if authType == "key" && alias.KeyPath == "" {
		authType = ""
	}
	switch authType {
	case "password":
		methods = append(methods, ssh.Password(alias.Password))
	case "key":
		signer, err := loadSigner(alias.KeyPath, "")
		if err != nil {
			return nil, NewTransferError(SshAuthFailed, "failed to load configured key: "+alias.KeyPath, WithAlias(alias.Alias), WithErr(err))
		}
		methods = append(methods, ssh.PublicKeys(signer))
	default:
		signers, err := defaultKeySigners()
		if err != nil || len(signers) == 0 {
			return nil, NewTransferError(SshAuthFailed, "no usable private key found for "+alias.Alias, WithAlias(alias.Alias))
		}
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	user := alias.User
	if user == "" {
		user = os.Getenv("USER")
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         ioTimeout,
	}, nil
}

// defaultKeySigners tries id_ed25519, id_rsa, id_ecdsa in that order from
// ~/.ssh and returns every one that parses successfully, so ssh.ClientConfig
// can offer all of them and let the server pick.
func defaultKeySigners() ([]ssh.Signer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	var signers []ssh.Signer
	for _, name := range orderedKeyNames {
		path := filepath.Join(home, ".ssh", name)
		signer, err := loadSigner(path, "")
		if err != nil {
			continue
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(keyData)
}

// ExpandRemoteHome runs `printf '%s' "$HOME"` over a one-shot session to
// resolve the remote user's home directory, grounded in
// original_source's expand_remote_tilde. Callers cache the result for the
// life of the Plan.
func ExpandRemoteHome(ctx context.Context, client *hostssh.Client) (string, error) {
	session, err := client.SSHClient().NewSession()
	if err != nil {
		return "", NewTransferError(SshSessionCreateFailed, "failed to open session for home lookup", WithErr(err))
	}
	defer session.Close()

	done := make(chan struct {
		out []byte
		err error
	}, 1)
	go func() {
		out, err := session.Output(`printf '%s' "$HOME"`)
		done <- struct {
			out []byte
			err error
		}{out, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", NewTransferError(OperationFailed, "failed to resolve remote $HOME", WithErr(res.err))
		}
		home := strings.TrimSpace(string(res.out))
		if home == "" {
			return "", NewTransferError(OperationFailed, "remote $HOME is empty")
		}
		return home, nil
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	}
}

// ExpandTilde rewrites a leading "~" or "~/" in path using home.
func ExpandTilde(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return home + "/" + path[2:]
	}
	return path
}
