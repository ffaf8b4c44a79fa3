// Package testhelpers provides common utilities for testing the Cyber
// Chat server.
//
// It contains a minimal TCP chat client able to perform the username
// handshake, send raw payloads, and assert on received frames, so unit
// and integration tests do not duplicate connection plumbing.
package testhelpers

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/cyberchat/internal/protocol"
	"github.com/Tyrowin/cyberchat/internal/server"
)

// DefaultTimeout bounds every read performed by the test client.
const DefaultTimeout = 2 * time.Second

// ChatClient is a test-only TCP client speaking the line protocol.
type ChatClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects a test client to the chat server at addr.
func Dial(t *testing.T, addr string) *ChatClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, DefaultTimeout)
	if err != nil {
		t.Fatalf("Failed to dial chat server at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &ChatClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

// TryDial attempts a raw TCP connection without failing the test, for
// asserting that the server refuses connections.
func TryDial(addr string) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, DefaultTimeout)
}

// Close shuts the client's connection.
func (c *ChatClient) Close() {
	_ = c.conn.Close()
}

// SendLine writes one newline-terminated payload to the server.
func (c *ChatClient) SendLine(payload string) {
	c.t.Helper()

	if err := c.conn.SetWriteDeadline(time.Now().Add(DefaultTimeout)); err != nil {
		c.t.Fatalf("Failed to set write deadline: %v", err)
	}
	if _, err := c.conn.Write([]byte(payload + "\n")); err != nil {
		c.t.Fatalf("Failed to send %q: %v", payload, err)
	}
}

// SendRaw writes bytes without any framing, for exercising partial-frame
// delivery.
func (c *ChatClient) SendRaw(data []byte) {
	c.t.Helper()

	if err := c.conn.SetWriteDeadline(time.Now().Add(DefaultTimeout)); err != nil {
		c.t.Fatalf("Failed to set write deadline: %v", err)
	}
	if _, err := c.conn.Write(data); err != nil {
		c.t.Fatalf("Failed to send raw bytes: %v", err)
	}
}

// ReadFrame reads the next frame, failing the test on timeout or EOF.
func (c *ChatClient) ReadFrame() protocol.Frame {
	c.t.Helper()

	frame, err := c.tryReadFrame()
	if err != nil {
		c.t.Fatalf("Failed to read frame: %v", err)
	}
	return frame
}

// TryReadFrame reads the next frame, returning the error instead of
// failing, for tests that expect the connection to close.
func (c *ChatClient) TryReadFrame() (protocol.Frame, error) {
	return c.tryReadFrame()
}

func (c *ChatClient) tryReadFrame() (protocol.Frame, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(DefaultTimeout)); err != nil {
		return protocol.Frame{}, err
	}

	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return protocol.Frame{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		tag, content, found := strings.Cut(line, "|")
		if !found || !protocol.IsKnownType(tag) {
			return protocol.Frame{Type: protocol.TypeMsg, Content: line}, nil
		}
		return protocol.Frame{Type: tag, Content: content}, nil
	}
}

// ExpectFrame reads frames until one of the wanted type arrives, failing
// after a bounded number of reads. Intervening frames of other types
// (presence updates racing system notices) are skipped.
func (c *ChatClient) ExpectFrame(frameType string) protocol.Frame {
	c.t.Helper()

	const maxSkipped = 16
	for i := 0; i < maxSkipped; i++ {
		frame := c.ReadFrame()
		if frame.Type == frameType {
			return frame
		}
	}
	c.t.Fatalf("Did not receive %s frame within %d frames", frameType, maxSkipped)
	return protocol.Frame{}
}

// ExpectFrameContent asserts the next frame of the wanted type carries
// exactly the wanted content.
func (c *ChatClient) ExpectFrameContent(frameType, content string) {
	c.t.Helper()

	frame := c.ExpectFrame(frameType)
	if frame.Content != content {
		c.t.Fatalf("Expected %s|%s, got %s|%s", frameType, content, frame.Type, frame.Content)
	}
}

// Handshake performs the username registration: it waits for the WELCOME
// prompt, sends the username, and waits for the OK confirmation.
func (c *ChatClient) Handshake(username string) {
	c.t.Helper()

	welcome := c.ReadFrame()
	if welcome.Type != protocol.TypeWelcome {
		c.t.Fatalf("Expected WELCOME frame, got %s|%s", welcome.Type, welcome.Content)
	}

	c.SendLine(username)
	c.ExpectFrameContent(protocol.TypeOK, fmt.Sprintf("Welcome to Cyber Chat, %s! 🚀", username))
}

// ExpectDisconnect asserts the server closes the connection.
func (c *ChatClient) ExpectDisconnect() {
	c.t.Helper()

	if err := c.conn.SetReadDeadline(time.Now().Add(DefaultTimeout)); err != nil {
		c.t.Fatalf("Failed to set read deadline: %v", err)
	}
	buf := make([]byte, 1)
	for {
		if _, err := c.conn.Read(buf); err != nil {
			return
		}
	}
}

// StartTestServer creates and starts a chat server on an ephemeral port,
// returning it with its listen address. The server is shut down when the
// test finishes.
func StartTestServer(t *testing.T, mutate func(*server.Config)) (*server.Server, string) {
	t.Helper()

	cfg := server.NewConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0 // ephemeral
	if mutate != nil {
		mutate(cfg)
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	srv := server.NewServer(cfg, log)
	go srv.Events().Run()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	addr := waitForAddr(t, srv, errCh)

	t.Cleanup(func() {
		_ = srv.Shutdown(5 * time.Second)
		srv.Events().Shutdown()
	})

	return srv, addr
}

func waitForAddr(t *testing.T, srv *server.Server, errCh chan error) string {
	t.Helper()

	deadline := time.Now().Add(DefaultTimeout)
	for time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			t.Fatalf("Server failed to start: %v", err)
		default:
		}
		if addr := srv.Addr(); addr != "" {
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Server did not report a listen address in time")
	return ""
}
