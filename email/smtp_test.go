package email

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (net.Listener, string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ln.Close()
	})

	addr := ln.Addr().(*net.TCPAddr)
	return ln, addr.IP.String(), addr.Port
}

// serveSMTP answers one session with a minimal SMTP dialogue and sends the DATA payload on received
func serveSMTP(ln net.Listener, received chan<- string) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			_ = tp.PrintfLine("500 empty command")
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case "EHLO", "HELO":
			_ = tp.PrintfLine("250 localhost")
		case "MAIL", "RCPT", "RSET", "NOOP":
			_ = tp.PrintfLine("250 OK")
		case "DATA":
			_ = tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			received <- string(body)
			_ = tp.PrintfLine("250 OK")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

// silent accepts connections and never writes a banner
func silent(t *testing.T, ln net.Listener) {
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
}

func sendAsync(ctx context.Context, sender Sender) <-chan bool {
	done := make(chan bool, 1)
	go func() {
		m := NewMailerWithSender("newsletter@example.com", sender)
		done <- m.Send(ctx, "foo@example.com", "Hello", "<p>Hi</p>")
	}()
	return done
}

func TestSMTPSender_Send(t *testing.T) {
	ln, host, port := listen(t)
	received := make(chan string, 1)
	go serveSMTP(ln, received)

	ok := <-sendAsync(context.Background(), NewSMTPSender(host, port, "", "", 5*time.Second))
	require.True(t, ok)

	select {
	case body := <-received:
		assert.Contains(t, body, "To: foo@example.com")
		assert.Contains(t, body, "Subject: Hello")
		assert.Contains(t, body, "text/html")
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSMTPSender_StalledServerHonoursContextDeadline(t *testing.T) {
	ln, host, port := listen(t)
	silent(t, ln)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	select {
	case ok := <-sendAsync(ctx, NewSMTPSender(host, port, "", "", time.Minute)):
		assert.False(t, ok)
		assert.Less(t, time.Since(start), 3*time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("send still blocked after its context deadline")
	}
}

func TestSMTPSender_StalledServerHonoursTimeout(t *testing.T) {
	ln, host, port := listen(t)
	silent(t, ln)

	select {
	case ok := <-sendAsync(context.Background(), NewSMTPSender(host, port, "", "", 200*time.Millisecond)):
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("send still blocked after its session timeout")
	}
}

func TestSMTPSender_StalledServerHonoursCancel(t *testing.T) {
	ln, host, port := listen(t)
	silent(t, ln)

	ctx, cancel := context.WithCancel(context.Background())
	done := sendAsync(ctx, NewSMTPSender(host, port, "", "", time.Minute))
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("send still blocked after cancel")
	}
}

func TestNewSMTPSender_DefaultTimeout(t *testing.T) {
	assert.Equal(t, defaultTimeout, NewSMTPSender("localhost", 25, "", "", 0).Timeout)
}
