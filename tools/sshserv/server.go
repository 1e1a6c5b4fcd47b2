// Package sshserv is an in-process SSH server for tests. It authenticates one
// user by password, accepts scp uploads and the sftp subsystem on the local
// filesystem, and answers every other exec request with "ok" and a scripted
// exit status.
package sshserv

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Options configures a Server. Zero values accept any user and password and
// exit every command with status 0.
type Options struct {
	User     string
	Password string
	// ExitStatus returns the exit status reported for an exec command.
	ExitStatus func(cmd string) uint32
	// ExecDelay holds every non-scp exec command before it replies.
	ExecDelay time.Duration
	// ExtraHostKeys are offered next to the generated ed25519 key.
	ExtraHostKeys []ssh.Signer
}

// Server is a running test server.
type Server struct {
	ln      net.Listener
	opts    Options
	hostKey ssh.Signer
	cfg     *ssh.ServerConfig

	mu       sync.Mutex
	commands []string
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// Start listens on listenAddr (e.g., 127.0.0.1:0) and serves until Close.
func Start(listenAddr string, opts Options) (*Server, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}

	s := &Server{ln: ln, opts: opts, hostKey: signer, conns: map[net.Conn]struct{}{}}
	s.cfg = &ssh.ServerConfig{
		PasswordCallback: func(md ssh.ConnMetadata, pw []byte) (*ssh.Permissions, error) {
			if opts.User != "" && md.User() != opts.User {
				return nil, fmt.Errorf("unknown user %q", md.User())
			}
			if opts.Password != "" && string(pw) != opts.Password {
				return nil, errors.New("password rejected")
			}
			return nil, nil
		},
	}
	s.cfg.AddHostKey(signer)
	for _, k := range opts.ExtraHostKeys {
		s.cfg.AddHostKey(k)
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// HostKey is the server's generated ed25519 public host key.
func (s *Server) HostKey() ssh.PublicKey { return s.hostKey.PublicKey() }

// Commands returns the non-scp exec commands received so far.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Close stops accepting, drops open connections and waits for handlers.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
	}
}

func (s *Server) handleConn(raw net.Conn) {
	defer func() { _ = raw.Close() }()
	sc, chans, reqs, err := ssh.NewServerConn(raw, s.cfg)
	if err != nil {
		return
	}
	defer func() { _ = sc.Close() }()
	go ssh.DiscardRequests(reqs)

	var wg sync.WaitGroup
	for ch := range chans {
		if ch.ChannelType() != "session" {
			_ = ch.Reject(ssh.UnknownChannelType, "")
			continue
		}
		c, in, err := ch.Accept()
		if err != nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleSession(c, in)
		}()
	}
	wg.Wait()
}

func (s *Server) handleSession(ch ssh.Channel, in <-chan *ssh.Request) {
	defer func() { _ = ch.Close() }()
	for req := range in {
		switch req.Type {
		case "env", "pty-req":
			_ = req.Reply(true, nil)
		case "exec":
			var p struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &p); err != nil {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			go ssh.DiscardRequests(in)
			sendExit(ch, s.exec(ch, p.Command))
			return
		case "subsystem":
			var p struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &p); err != nil || p.Name != "sftp" {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			go ssh.DiscardRequests(in)
			sendExit(ch, serveSFTP(ch))
			return
		default:
			_ = req.Reply(false, nil)
		}
	}
}

// exec runs one command and returns its exit status.
func (s *Server) exec(ch ssh.Channel, cmd string) uint32 {
	if target, ok := scpSinkTarget(cmd); ok {
		if err := scpSink(ch, target); err != nil {
			_, _ = fmt.Fprintf(ch.Stderr(), "scp: %v\n", err)
			return 1
		}
		return 0
	}

	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	s.mu.Unlock()

	if s.opts.ExecDelay > 0 {
		time.Sleep(s.opts.ExecDelay)
	}
	_, _ = ch.Write([]byte("ok\n"))
	if s.opts.ExitStatus != nil {
		return s.opts.ExitStatus(cmd)
	}
	return 0
}

func sendExit(ch ssh.Channel, status uint32) {
	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
}

func serveSFTP(ch ssh.Channel) uint32 {
	srv, err := sftp.NewServer(ch)
	if err != nil {
		return 1
	}
	defer func() { _ = srv.Close() }()
	if err := srv.Serve(); err != nil && !errors.Is(err, io.EOF) {
		return 1
	}
	return 0
}

// scpSinkTarget recognizes `scp -t <path>` and its -q/-r/-p variants. The
// path is everything after the options and may be quoted.
func scpSinkTarget(cmd string) (string, bool) {
	prog, rest, _ := strings.Cut(strings.TrimSpace(cmd), " ")
	if filepath.Base(prog) != "scp" {
		return "", false
	}
	sink := false
	for {
		rest = strings.TrimLeft(rest, " ")
		if !strings.HasPrefix(rest, "-") {
			break
		}
		var opt string
		opt, rest, _ = strings.Cut(rest, " ")
		if strings.Contains(opt, "t") {
			sink = true
		}
	}
	if !sink || rest == "" {
		return "", false
	}
	if unq, err := strconv.Unquote(rest); err == nil {
		return unq, true
	}
	return strings.Trim(rest, "'"), true
}

// scpSink implements the receiving side of the scp protocol for plain files.
func scpSink(ch ssh.Channel, target string) error {
	br := bufio.NewReader(ch)
	ack := func() { _, _ = ch.Write([]byte{0}) }
	fail := func(err error) error {
		_, _ = ch.Write([]byte("\x02" + err.Error() + "\n"))
		return err
	}

	ack()
	for {
		line, err := br.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch line[0] {
		case 'C':
			parts := strings.SplitN(strings.TrimSpace(line[1:]), " ", 3)
			if len(parts) != 3 {
				return fail(fmt.Errorf("bad header %q", line))
			}
			mode, err := strconv.ParseUint(parts[0], 8, 32)
			if err != nil {
				return fail(err)
			}
			size, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return fail(err)
			}
			dst := target
			if fi, err := os.Stat(target); err == nil && fi.IsDir() {
				dst = filepath.Join(target, parts[2])
			}
			f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(mode))
			if err != nil {
				return fail(err)
			}
			ack()
			_, err = io.CopyN(f, br, size)
			_ = f.Close()
			if err != nil {
				return err
			}
			if _, err := br.ReadByte(); err != nil {
				return err
			}
			ack()
		case 'T', 'D', 'E':
			ack()
		default:
			return fail(fmt.Errorf("unsupported scp message %q", line))
		}
	}
}
