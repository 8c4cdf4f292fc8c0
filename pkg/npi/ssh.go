package npi

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/ssh"
)

// sshConn bundles the forwarded channel with the ssh.Client that owns it, so
// Close tears down the channel and the underlying SSH connection together.
type sshConn struct {
	io.ReadWriteCloser
	client *ssh.Client
}

func (c *sshConn) Close() error {
	chErr := c.ReadWriteCloser.Close()
	cliErr := c.client.Close()
	if chErr != nil {
		return chErr
	}
	return cliErr
}

// DialSSH dials SSH to a radio-processor host and opens a direct-tcpip
// channel to remoteAddr (the TCP port the NPI bridge daemon listens on
// inside that host, e.g. a Raspberry Pi wired to the radio's UART), then
// wraps the resulting channel as an NPI Transport and starts its read loop.
//
// Used when the radio processor is not attached to this machine directly
// but reachable only through a jump host. If port is 0, defaults to 22.
func DialSSH(host, user, pass string, port int, remoteAddr string) (*Transport, error) {
	if port == 0 {
		port = 22
	}
	config := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(pass),
		},
		// Lab/bench environment; production deployments should pin a host key.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("npi: SSH dial %s@%s: %w", user, addr, err)
	}

	ch, err := client.Dial("tcp", remoteAddr)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("npi: open channel to %s: %w", remoteAddr, err)
	}

	t := Open(&sshConn{ReadWriteCloser: ch, client: client})
	t.Start()
	return t, nil
}
