// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package sshd

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/fenholt/doorman/internal/logging"
)

const forwardDialTimeout = 10 * time.Second

const shellRefusal = "This server does not provide interactive shell access.\r\n"

// handleChannels dispatches the connection's channel requests. Sessions
// and, when enabled, client-opened forwards are the only supported types.
func (s *Server) handleChannels(ctx context.Context, sconn *ssh.ServerConn, chans <-chan ssh.NewChannel) {
	for newChannel := range chans {
		switch newChannel.ChannelType() {
		case "session":
			ch, reqs, err := newChannel.Accept()
			if err != nil {
				logging.Warnf("failed to accept session channel: %v", err)
				continue
			}
			s.wg.Go(func() { s.handleSession(ch, reqs) })
		case "direct-tcpip":
			s.handleDirectTCPIP(ctx, newChannel)
		default:
			logging.Debugf("rejecting channel type %s", newChannel.ChannelType())
			_ = newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
		}
	}
}

// handleSession serves one session channel. Doorman is a front door, not a
// login host: the sftp subsystem may be enabled, anything asking for a
// shell gets a short notice and a clean exit.
func (s *Server) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer func() { _ = ch.Close() }()
	for req := range reqs {
		switch req.Type {
		case "subsystem":
			if name := parseSubsystemName(req.Payload); name == "sftp" && s.cfg.SFTP {
				_ = req.Reply(true, nil)
				s.serveSFTP(ch)
				return
			}
			_ = req.Reply(false, nil)
		case "pty-req", "env", "window-change":
			_ = req.Reply(true, nil)
		case "shell", "exec":
			_ = req.Reply(true, nil)
			_, _ = io.WriteString(ch, shellRefusal)
			sendExitStatus(ch, 0)
			return
		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

// serveSFTP runs the sftp subsystem over the channel until the client
// disconnects.
func (s *Server) serveSFTP(ch ssh.Channel) {
	var opts []sftp.ServerOption
	if s.cfg.SFTPRoot != "" {
		opts = append(opts, sftp.WithServerWorkingDirectory(s.cfg.SFTPRoot))
	}
	if s.cfg.SFTPReadOnly {
		opts = append(opts, sftp.ReadOnly())
	}
	srv, err := sftp.NewServer(ch, opts...)
	if err != nil {
		logging.Errorf("failed to start sftp server: %v", err)
		return
	}
	defer func() { _ = srv.Close() }()
	if err := srv.Serve(); err != nil && !errors.Is(err, io.EOF) {
		logging.Warnf("sftp session ended: %v", err)
	}
}

// handleDirectTCPIP opens a client-requested forward when forwarding is
// enabled and the target passes the allowlist.
func (s *Server) handleDirectTCPIP(ctx context.Context, newChannel ssh.NewChannel) {
	if !s.cfg.AllowTCPForwarding {
		_ = newChannel.Reject(ssh.Prohibited, "port forwarding is disabled")
		return
	}
	host, port, err := parseForwardTarget(newChannel.ExtraData())
	if err != nil {
		_ = newChannel.Reject(ssh.Prohibited, err.Error())
		return
	}
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	if !s.forwardAllowed(addr) {
		logging.Infof("refusing forward to %s", addr)
		_ = newChannel.Reject(ssh.Prohibited, "forward target not allowed")
		return
	}
	ch, reqs, err := newChannel.Accept()
	if err != nil {
		logging.Warnf("failed to accept forward channel: %v", err)
		return
	}
	go ssh.DiscardRequests(reqs)
	s.wg.Go(func() { s.forward(ctx, ch, addr) })
}

// forwardAllowed checks addr against the allowlist. An empty list permits
// any target; the gate is the AllowTCPForwarding switch itself.
func (s *Server) forwardAllowed(addr string) bool {
	if len(s.cfg.ForwardTargets) == 0 {
		return true
	}
	return slices.Contains(s.cfg.ForwardTargets, addr)
}

// forward relays the channel to the target. Both sides are torn down as
// soon as either direction finishes so neither copy can linger.
func (s *Server) forward(ctx context.Context, ch ssh.Channel, addr string) {
	defer func() { _ = ch.Close() }()

	dialer := net.Dialer{Timeout: forwardDialTimeout}
	target, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logging.Warnf("failed to reach forward target %s: %v", addr, err)
		return
	}
	defer func() { _ = target.Close() }()

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(target, ch)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(ch, target)
		done <- struct{}{}
	}()
	<-done
}

// parseSubsystemName extracts the subsystem name from the request payload.
func parseSubsystemName(payload []byte) string {
	if len(payload) < 4 {
		return ""
	}
	l := binary.BigEndian.Uint32(payload[:4])
	if uint32(len(payload)-4) < l {
		return ""
	}
	return string(payload[4 : 4+l])
}

// parseForwardTarget extracts the destination host and port from a
// direct-tcpip channel payload.
func parseForwardTarget(extra []byte) (string, uint32, error) {
	if len(extra) < 4 {
		return "", 0, fmt.Errorf("malformed forward request: missing host length")
	}
	l := int(binary.BigEndian.Uint32(extra[:4]))
	if len(extra) < 4+l+4 {
		return "", 0, fmt.Errorf("malformed forward request: truncated host or port")
	}
	host := string(extra[4 : 4+l])
	port := binary.BigEndian.Uint32(extra[4+l : 4+l+4])
	return host, port, nil
}

func sendExitStatus(ch ssh.Channel, status uint32) {
	payload := struct{ Status uint32 }{status}
	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(&payload))
}
