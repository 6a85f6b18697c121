package transport

import (
	"bufio"
	"bytes"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/indigo-web/streamecho/config"
	"github.com/stretchr/testify/require"
)

// shoutSession writes back everything it's fed in upper case, and hangs up on "BYE".
type shoutSession struct {
	conn   Conn
	done   bool
	closed chan struct{}
}

func (s *shoutSession) Feed(data []byte) error {
	upper := bytes.ToUpper(data)
	s.done = bytes.Contains(upper, []byte("BYE"))
	_, err := s.conn.Write(upper)
	return err
}

func (s *shoutSession) Done() bool {
	return s.done
}

func (s *shoutSession) Close() {
	close(s.closed)
}

type shoutHandler struct {
	mu       sync.Mutex
	sessions []*shoutSession
}

func (h *shoutHandler) Spawn(conn Conn) Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &shoutSession{conn: conn, closed: make(chan struct{})}
	h.sessions = append(h.sessions, s)

	return s
}

func testConfig() config.NET {
	cfg := config.Default().NET
	cfg.AcceptLoopInterruptPeriod = 20 * time.Millisecond
	cfg.ReadTimeout = time.Second

	return cfg
}

func TestTCP(t *testing.T) {
	tcp := NewTCP()
	require.NoError(t, tcp.Bind("127.0.0.1:0"))
	addr := tcp.Addr().String()

	h := new(shoutHandler)
	errch := make(chan error, 1)
	go func() {
		errch <- tcp.Listen(testConfig(), h)
	}()

	t.Run("session per connection", func(t *testing.T) {
		for range 2 {
			conn, err := net.Dial("tcp", addr)
			require.NoError(t, err)

			_, err = conn.Write([]byte("hello\n"))
			require.NoError(t, err)
			line, err := bufio.NewReader(conn).ReadString('\n')
			require.NoError(t, err)
			require.Equal(t, "HELLO\n", line)
			require.NoError(t, conn.Close())
		}

		h.mu.Lock()
		defer h.mu.Unlock()
		require.Len(t, h.sessions, 2)
	})

	t.Run("done session closes the connection", func(t *testing.T) {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte("bye"))
		require.NoError(t, err)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))

		var response bytes.Buffer
		_, err = response.ReadFrom(conn)
		require.NoError(t, err)
		require.Equal(t, "BYE", response.String())
	})

	tcp.Stop()
	select {
	case err := <-errch:
		require.NoError(t, err)
	case <-time.After(time.Second):
		require.Fail(t, "accept loop did not stop")
	}

	tcp.Wait()
	tcp.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions {
		select {
		case <-s.closed:
		default:
			require.Fail(t, "session was not closed")
		}
	}
}
