package mailer

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/mailfleet/mailfleet/internal/config"
)

// startFakeSMTPServer speaks just enough SMTP on a loopback listener to
// drive a single submission. When starttlsReply is non-empty the server
// advertises STARTTLS and answers the command with that line. Message
// bodies arrive on the returned channel.
func startFakeSMTPServer(t *testing.T, starttlsReply string) (string, int, <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	data := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		write := func(s string) { conn.Write([]byte(s + "\r\n")) }

		write("220 mail.test ESMTP ready")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				if starttlsReply != "" {
					write("250-mail.test")
					write("250 STARTTLS")
				} else {
					write("250 mail.test")
				}
			case strings.HasPrefix(cmd, "STARTTLS"):
				write(starttlsReply)
			case strings.HasPrefix(cmd, "DATA"):
				write("354 end with <CRLF>.<CRLF>")
				var b strings.Builder
				for {
					dl, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if strings.TrimRight(dl, "\r\n") == "." {
						break
					}
					b.WriteString(dl)
				}
				data <- b.String()
				write("250 queued")
			case strings.HasPrefix(cmd, "QUIT"):
				write("221 bye")
				return
			default:
				write("250 OK")
			}
		}
	}()

	return "127.0.0.1", ln.Addr().(*net.TCPAddr).Port, data
}

func TestSendPlaintext(t *testing.T) {
	host, port, data := startFakeSMTPServer(t, "")
	m := NewSMTPMailer(config.SMTPConfig{
		Host: host, Port: port, Hostname: "mailfleet.test", Timeout: 5 * time.Second,
	}, slog.Default())

	res, err := m.Send(context.Background(), &Message{
		FromEmail: "news@example.com",
		To:        "jo@example.org",
		Subject:   "Hello",
		HTML:      "<p>Hi</p>",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if res.ID == "" {
		t.Error("no message id assigned")
	}

	select {
	case got := <-data:
		if !strings.Contains(got, "Subject: Hello") {
			t.Errorf("server received message without subject:\n%s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received message data")
	}
}

func TestSendStartTLSRefused(t *testing.T) {
	host, port, _ := startFakeSMTPServer(t, "502 command not implemented")
	m := NewSMTPMailer(config.SMTPConfig{
		Host: host, Port: port, Hostname: "mailfleet.test", Timeout: 5 * time.Second,
		STARTTLS: true,
	}, slog.Default())

	_, err := m.Send(context.Background(), &Message{FromEmail: "news@example.com", To: "jo@example.org"})
	if err == nil {
		t.Fatal("expected error when STARTTLS is refused")
	}
	if !strings.Contains(err.Error(), "STARTTLS") {
		t.Errorf("error should name the STARTTLS stage: %v", err)
	}
	if IsTemporaryError(err) {
		t.Error("5xx STARTTLS refusal must be permanent")
	}
}

func TestBuildMessage(t *testing.T) {
	msg := &Message{
		FromEmail: "news@example.com",
		FromName:  "News",
		To:        "jo@example.org",
		ToName:    "Jo",
		Subject:   "Hello",
		HTML:      "<p>Hi Jo</p>",
	}

	data := string(BuildMessage(msg, "abc-123", "mail.example.com"))

	for _, want := range []string{
		"From: News <news@example.com>\r\n",
		"To: Jo <jo@example.org>\r\n",
		"Subject: Hello\r\n",
		"Message-ID: <abc-123@mail.example.com>\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: text/html; charset=utf-8\r\n",
		"\r\n<p>Hi Jo</p>\r\n",
	} {
		if !strings.Contains(data, want) {
			t.Errorf("message missing %q:\n%s", want, data)
		}
	}
}

func TestBuildMessageEncodesSubject(t *testing.T) {
	msg := &Message{
		FromEmail: "news@example.com",
		To:        "jo@example.org",
		Subject:   "Frühlingsangebot",
	}

	data := string(BuildMessage(msg, "id", "host"))
	if strings.Contains(data, "Subject: Frühlingsangebot") {
		t.Error("non-ASCII subject must be encoded")
	}
	if !strings.Contains(data, "Subject: =?utf-8?") {
		t.Errorf("expected q-encoded subject:\n%s", data)
	}
}

func TestBuildMessageBareAddress(t *testing.T) {
	msg := &Message{FromEmail: "news@example.com", To: "jo@example.org"}
	data := string(BuildMessage(msg, "id", "host"))

	if !strings.Contains(data, "From: news@example.com\r\n") {
		t.Errorf("bare from address mangled:\n%s", data)
	}
	if !strings.Contains(data, "To: jo@example.org\r\n") {
		t.Errorf("bare to address mangled:\n%s", data)
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		temporary bool
	}{
		{"4xx is temporary", errors.New("451 4.7.1 greylisted"), true},
		{"5xx is permanent", errors.New("550 5.1.1 no such user"), false},
		{"no code defaults temporary", errors.New("connection reset"), true},
		{"code inside text", errors.New("smtp error: 552 mailbox full"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := categorizeError(tt.err, "RCPT TO")
			if de.Temporary != tt.temporary {
				t.Errorf("Temporary = %v, want %v", de.Temporary, tt.temporary)
			}
			if !strings.Contains(de.Message, "RCPT TO") {
				t.Errorf("message should name the stage: %s", de.Message)
			}
		})
	}
}

func TestIsTemporaryError(t *testing.T) {
	if !IsTemporaryError(&DeliveryError{Temporary: true}) {
		t.Error("temporary delivery error misclassified")
	}
	if IsTemporaryError(&DeliveryError{Temporary: false}) {
		t.Error("permanent delivery error misclassified")
	}
	if !IsTemporaryError(errors.New("unknown")) {
		t.Error("unknown errors default to temporary")
	}
}
