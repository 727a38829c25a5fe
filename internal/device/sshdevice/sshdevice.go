package sshdevice

import (
	"fmt"
	"io"
	"net"

	gossh "golang.org/x/crypto/ssh"

	"github.com/mimecast/filterpipe/internal/constants"
	"github.com/mimecast/filterpipe/internal/errors"
)

// Device is a filter.Device over an SSH session's stdout (reading) or
// stdin (writing), running a single remote command for the lifetime of
// the device. It is not seekable and not rewindable — a PostScript/PDF
// stream chained onto it loses those flags the way any pipe-backed base
// file would.
type Device struct {
	client  *gossh.Client
	session *gossh.Session
	reader  io.Reader
	writer  io.WriteCloser
	closed  bool
}

// Dial opens an SSH connection, the caller's responsibility to Close once
// every Device built from it is done.
func Dial(addr string, config *gossh.ClientConfig) (*gossh.Client, error) {
	if config.Timeout == 0 {
		config.Timeout = constants.SSHDialTimeout
	}
	conn, err := net.DialTimeout("tcp", addr, config.Timeout)
	if err != nil {
		return nil, errors.Wrap(err, "sshdevice: dial failed")
	}
	c, chans, reqs, err := gossh.NewClientConn(conn, addr, config)
	if err != nil {
		return nil, errors.Wrap(err, "sshdevice: handshake failed")
	}
	return gossh.NewClient(c, chans, reqs), nil
}

// OpenRead runs `cat <remotePath>` over a new session on client and
// exposes its stdout as a Device.
func OpenRead(client *gossh.Client, remotePath string) (*Device, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "sshdevice: session failed")
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, errors.Wrap(err, "sshdevice: stdout pipe failed")
	}
	if err := session.Start(fmt.Sprintf("cat %s", shellQuote(remotePath))); err != nil {
		session.Close()
		return nil, errors.Wrap(err, "sshdevice: start failed")
	}
	return &Device{client: client, session: session, reader: stdout}, nil
}

// OpenWrite runs `cat > <remotePath>` over a new session on client and
// exposes its stdin as a Device.
func OpenWrite(client *gossh.Client, remotePath string) (*Device, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "sshdevice: session failed")
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, errors.Wrap(err, "sshdevice: stdin pipe failed")
	}
	if err := session.Start(fmt.Sprintf("cat > %s", shellQuote(remotePath))); err != nil {
		session.Close()
		return nil, errors.Wrap(err, "sshdevice: start failed")
	}
	return &Device{client: client, session: session, writer: stdin}, nil
}

func shellQuote(s string) string {
	return "'" + replaceAll(s, "'", `'\''`) + "'"
}

func replaceAll(s, old, new string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if old == string(s[i]) {
			out = append(out, new...)
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func (d *Device) Read(p []byte) (int, error) {
	if d.reader == nil {
		return 0, errors.ErrInvalidAccess
	}
	return d.reader.Read(p)
}

func (d *Device) Write(p []byte) (int, error) {
	if d.writer == nil {
		return 0, errors.ErrInvalidAccess
	}
	return d.writer.Write(p)
}

func (d *Device) Seek(offset int64, whence int) (int64, error) {
	return 0, errors.ErrRangeCheck
}

func (d *Device) Size() (int64, error) { return -1, nil }

func (d *Device) Rewindable() bool { return false }

// Close ends the remote command (closing stdin first, if this is a write
// device, so the remote `cat` sees EOF) and releases the session.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	var merr errors.MultiError
	if d.writer != nil {
		merr.Add(d.writer.Close())
	}
	if d.session != nil {
		merr.Add(d.session.Wait())
		merr.Add(d.session.Close())
	}
	return merr.ErrorOrNil()
}
