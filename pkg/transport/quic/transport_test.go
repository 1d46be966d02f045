package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/playdodgeball/wtserver/pkg/transport"
)

func listen(t *testing.T) *Transport {
	t.Helper()
	tlsConf, _, err := transport.SelfSigned(time.Hour, "localhost")
	if err != nil {
		t.Fatal(err)
	}
	tr, err := Listen("127.0.0.1:0", tlsConf, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func dial(t *testing.T, ctx context.Context, tr *Transport) *quic.Conn {
	t.Helper()
	conn, err := quic.DialAddr(ctx, tr.Addr().String(), &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{ALPN},
	}, &quic.Config{EnableDatagrams: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.CloseWithError(0, "") })
	return conn
}

// TestSessionRoundTrip tests datagrams and streams over a loopback connection
func TestSessionRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr := listen(t)
	client := dial(t, ctx, tr)

	ses, err := tr.Accept(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := client.SendDatagram([]byte{0, 1, 2}); err != nil {
		t.Fatal(err)
	}
	d, err := ses.ReceiveDatagram(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(d) != 3 || d[2] != 2 {
		t.Errorf("Unexpected datagram %v", d)
	}

	out, err := ses.OpenUniStreamSync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := out.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	out.Close()

	in, err := client.AcceptUniStream(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, err := io.ReadAll(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "hello" {
		t.Errorf("Expected hello, got %q", b)
	}

	if err := ses.CloseWithError(0, "bye"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ses.Context().Done():
	case <-ctx.Done():
		t.Fatal("Session context not cancelled after close")
	}
}

// TestAcceptAfterClose tests the error returned by a closed listener
func TestAcceptAfterClose(t *testing.T) {
	tr := listen(t)
	tr.Close()

	_, err := tr.Accept(context.Background())
	if !errors.Is(err, transport.ErrTransportClosed) {
		t.Errorf("Expected ErrTransportClosed, got %v", err)
	}
}
