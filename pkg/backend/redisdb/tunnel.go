package redisdb

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/newtron-network/sairedis/pkg/util"
)

// SSHOptions identifies the switch that hosts Redis.
type SSHOptions struct {
	Host     string
	Port     int
	User     string
	Password string
}

// SSHTunnel forwards a local TCP port to Redis on the far side of an SSH
// connection. SONiC's Redis listens on loopback without authentication, so
// remote access goes through SSH.
type SSHTunnel struct {
	localAddr  string
	remoteAddr string
	sshClient  *ssh.Client
	listener   net.Listener
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewSSHTunnel dials the switch and listens on a random local port.
// Connections to that port reach remoteAddr as seen from the switch;
// an empty remoteAddr means 127.0.0.1:6379.
func NewSSHTunnel(opts SSHOptions, remoteAddr string) (*SSHTunnel, error) {
	if remoteAddr == "" {
		remoteAddr = "127.0.0.1:6379"
	}
	port := opts.Port
	if port == 0 {
		port = 22
	}

	config := &ssh.ClientConfig{
		User: opts.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(opts.Password),
		},
		// Lab switches regenerate host keys on every image install.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	sshAddr := net.JoinHostPort(opts.Host, strconv.Itoa(port))
	sshClient, err := ssh.Dial("tcp", sshAddr, config)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", sshAddr, err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("local listen: %w", err)
	}

	t := &SSHTunnel{
		localAddr:  listener.Addr().String(),
		remoteAddr: remoteAddr,
		sshClient:  sshClient,
		listener:   listener,
		done:       make(chan struct{}),
	}

	t.wg.Add(1)
	go t.acceptLoop()

	util.WithField("ssh", sshAddr).Infof("SSH tunnel %s -> %s", t.localAddr, remoteAddr)
	return t, nil
}

// LocalAddr returns the local end of the tunnel.
func (t *SSHTunnel) LocalAddr() string {
	return t.localAddr
}

// Close stops accepting, waits for open forwards and closes the SSH
// connection.
func (t *SSHTunnel) Close() error {
	close(t.done)
	t.listener.Close()
	t.wg.Wait()
	return t.sshClient.Close()
}

func (t *SSHTunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		local, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
				continue
			}
		}
		t.wg.Add(1)
		go t.forward(local)
	}
}

func (t *SSHTunnel) forward(local net.Conn) {
	defer t.wg.Done()
	defer local.Close()

	remote, err := t.sshClient.Dial("tcp", t.remoteAddr)
	if err != nil {
		util.Logger.Warnf("SSH tunnel dial %s: %v", t.remoteAddr, err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}
