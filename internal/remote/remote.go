package remote

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"vmforge/internal/logging"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// Client is an SSH connection to a provisioned VM, used to verify the
// deployed service and push test payloads. It only exists after the external
// engine has reported an address.
type Client struct {
	client     *ssh.Client
	sftpClient *sftp.Client
	host       string
	user       string
	vmName     string
}

// Config holds connection parameters for a provisioned VM.
type Config struct {
	Host           string
	User           string
	PrivateKeyPath string
	WaitTimeout    time.Duration
	DialTimeout    time.Duration
	VMName         string
}

// escapeNewlines escapes newline characters for proper log formatting
func escapeNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}

// safeClose safely closes a resource and logs any errors
func safeClose(name string, closer func() error) {
	if err := closer(); err != nil {
		logging.Logger().Warn("failed to close resource",
			zap.String("resource", name),
			zap.Error(err))
	}
}

// Dial waits for the VM's SSH port and establishes a connection.
func Dial(config Config) (*Client, error) {
	if config.WaitTimeout == 0 {
		config.WaitTimeout = 5 * time.Minute
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 30 * time.Second
	}

	if err := waitForSSH(config.Host, config.WaitTimeout); err != nil {
		return nil, fmt.Errorf("SSH not available after timeout: %w", err)
	}

	keyBytes, err := os.ReadFile(config.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	clientConfig := &ssh.ClientConfig{
		User: config.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		// The host key is new on every provisioning run; known-hosts
		// reconciliation happens separately.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         config.DialTimeout,
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(config.Host, "22"), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}

	logging.Logger().Info("SSH connection established",
		zap.String("user", config.User),
		zap.String("host", config.Host),
		zap.String("vm_name", config.VMName))

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}

	return &Client{
		client:     client,
		sftpClient: sftpClient,
		host:       config.Host,
		user:       config.User,
		vmName:     config.VMName,
	}, nil
}

// Close closes the SFTP and SSH connections
func (c *Client) Close() error {
	if c.sftpClient != nil {
		safeClose("SFTP client", c.sftpClient.Close)
	}
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Run executes a command on the VM and returns an error when it exits
// non-zero.
func (c *Client) Run(command string) error {
	session, err := c.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer safeClose("SSH session", session.Close)

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	logging.Logger().Debug("executing command",
		zap.String("command", logging.Truncate(command)),
		zap.String("host", c.host),
		zap.String("vm_name", c.vmName))

	err = session.Run(command)

	logging.Logger().Info("command executed",
		zap.String("command", logging.Truncate(command)),
		zap.String("host", c.host),
		zap.String("vm_name", c.vmName),
		zap.String("stdout", escapeNewlines(logging.Truncate(stdout.String()))),
		zap.String("stderr", escapeNewlines(logging.Truncate(stderr.String()))),
		zap.Bool("success", err == nil))

	return err
}

// Upload copies a local file onto the VM via SFTP.
func (c *Client) Upload(localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read local file: %w", err)
	}

	remoteFile, err := c.sftpClient.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer safeClose("remote file", remoteFile.Close)

	n, err := remoteFile.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write remote file: %w", err)
	}

	logging.Logger().Info("file uploaded",
		zap.String("local_path", localPath),
		zap.String("remote_path", remotePath),
		zap.String("host", c.host),
		zap.String("vm_name", c.vmName),
		zap.Int("size_bytes", n))

	return nil
}

// waitForSSH waits for the SSH port to become available with timeout
func waitForSSH(host string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, "22"), 5*time.Second)
		if err == nil {
			if closeErr := conn.Close(); closeErr != nil {
				logging.Logger().Debug("failed to close connection test",
					zap.String("host", host),
					zap.Error(closeErr))
			}
			return nil
		}

		time.Sleep(5 * time.Second)
	}

	return fmt.Errorf("SSH port not available after %v timeout", timeout)
}
