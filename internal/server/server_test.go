package server

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/fss/internal/fss"
	"github.com/marmos91/fss/internal/wire"
)

func startTestServer(t *testing.T, nWorkers int) (*Server, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "fss.sock")
	store := fss.New(1<<20, 100, 0, nil)
	srv := New(Config{
		SocketPath:    sockPath,
		SocketBacklog: 16,
		NWorkers:      nWorkers,
	}, store, nil)

	go func() {
		_ = srv.Serve()
	}()

	select {
	case <-srv.WaitReady():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not become ready in time")
	}
	t.Cleanup(srv.Stop)
	return srv, sockPath
}

func dial(t *testing.T, sockPath string) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendRecv(t *testing.T, conn net.Conn, m *wire.Message) *wire.Message {
	t.Helper()
	require.NoError(t, wire.WriteMessage(conn, m))
	reply, err := wire.ReadMessage(conn)
	require.NoError(t, err)
	t.Cleanup(func() { wire.ReleaseMessage(reply) })
	return reply
}

func TestServerEndToEndCreateWriteReadRemove(t *testing.T) {
	_, sockPath := startTestServer(t, 2)
	conn := dial(t, sockPath)

	reply := sendRecv(t, conn, wire.NewOpen("/greeting", wire.FlagCreate|wire.FlagLock))
	require.Equal(t, wire.OK, reply.Kind)

	reply = sendRecv(t, conn, wire.NewWriteOrAppend(wire.WRITE, "/greeting", []byte("hello")))
	require.Equal(t, wire.OK, reply.Kind)

	require.NoError(t, wire.WriteMessage(conn, wire.NewPathMessage(wire.READ, "/greeting")))
	getf, err := wire.ReadMessage(conn)
	require.NoError(t, err)
	require.Equal(t, wire.GETF, getf.Kind)
	require.Equal(t, []byte("hello"), getf.Bytes())
	wire.ReleaseMessage(getf)

	ok, err := wire.ReadMessage(conn)
	require.NoError(t, err)
	require.Equal(t, wire.OK, ok.Kind)
	wire.ReleaseMessage(ok)

	reply = sendRecv(t, conn, wire.NewPathMessage(wire.UNLOCK, "/greeting"))
	require.Equal(t, wire.OK, reply.Kind)
}

func TestServerTwoConnectionsDoNotInterleaveReplies(t *testing.T) {
	_, sockPath := startTestServer(t, 4)
	a := dial(t, sockPath)
	b := dial(t, sockPath)

	reply := sendRecv(t, a, wire.NewOpen("/a", wire.FlagCreate))
	require.Equal(t, wire.OK, reply.Kind)
	reply = sendRecv(t, b, wire.NewOpen("/b", wire.FlagCreate))
	require.Equal(t, wire.OK, reply.Kind)
}

func TestServerDisconnectPromotesNextLockWaiter(t *testing.T) {
	_, sockPath := startTestServer(t, 4)
	owner := dial(t, sockPath)
	waiter := dial(t, sockPath)

	reply := sendRecv(t, owner, wire.NewOpen("/locked", wire.FlagCreate|wire.FlagLock))
	require.Equal(t, wire.OK, reply.Kind)

	done := make(chan *wire.Message, 1)
	go func() {
		require.NoError(t, wire.WriteMessage(waiter, wire.NewPathMessage(wire.LOCK, "/locked")))
		reply, err := wire.ReadMessage(waiter)
		require.NoError(t, err)
		done <- reply
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, owner.Close()) // disconnect without unlocking

	select {
	case reply := <-done:
		require.Equal(t, wire.OK, reply.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was never promoted after owner disconnected")
	}
}

func TestServerStopReleasesBlockedWaiter(t *testing.T) {
	srv, sockPath := startTestServer(t, 4)
	owner := dial(t, sockPath)
	waiter := dial(t, sockPath)

	reply := sendRecv(t, owner, wire.NewOpen("/f", wire.FlagCreate|wire.FlagLock))
	require.Equal(t, wire.OK, reply.Kind)

	done := make(chan *wire.Message, 1)
	go func() {
		require.NoError(t, wire.WriteMessage(waiter, wire.NewPathMessage(wire.LOCK, "/f")))
		reply, err := wire.ReadMessage(waiter)
		require.NoError(t, err)
		done <- reply
	}()
	time.Sleep(20 * time.Millisecond)

	srv.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not drain the blocked waiter")
	}
}
