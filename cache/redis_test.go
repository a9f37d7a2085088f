package cache

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeRedis speaks just enough RESP to exercise the client: AUTH, SELECT,
// GET, SET and DEL against an in-memory map.
type fakeRedis struct {
	listener net.Listener

	mu       sync.Mutex
	values   map[string]string
	password string
	authed   []string
	selected []int
}

func startFakeRedis(t *testing.T, password string) *fakeRedis {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &fakeRedis{
		listener: listener,
		values:   map[string]string{},
		password: password,
	}
	go server.serve()
	t.Cleanup(func() { _ = listener.Close() })
	return server
}

func (s *fakeRedis) addr() string { return s.listener.Addr().String() }

func (s *fakeRedis) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeRedis) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	for {
		args, err := readCommand(reader)
		if err != nil {
			return
		}
		if len(args) == 0 {
			continue
		}

		s.mu.Lock()
		switch strings.ToUpper(args[0]) {
		case "AUTH":
			supplied := args[len(args)-1]
			if s.password != "" && supplied != s.password {
				fmt.Fprintf(conn, "-ERR invalid password\r\n")
			} else {
				s.authed = append(s.authed, supplied)
				fmt.Fprintf(conn, "+OK\r\n")
			}
		case "SELECT":
			db, _ := strconv.Atoi(args[1])
			s.selected = append(s.selected, db)
			fmt.Fprintf(conn, "+OK\r\n")
		case "SET":
			s.values[args[1]] = args[2]
			fmt.Fprintf(conn, "+OK\r\n")
		case "GET":
			if value, ok := s.values[args[1]]; ok {
				fmt.Fprintf(conn, "$%d\r\n%s\r\n", len(value), value)
			} else {
				fmt.Fprintf(conn, "$-1\r\n")
			}
		case "DEL":
			removed := 0
			for _, key := range args[1:] {
				if _, ok := s.values[key]; ok {
					delete(s.values, key)
					removed++
				}
			}
			fmt.Fprintf(conn, ":%d\r\n", removed)
		default:
			fmt.Fprintf(conn, "-ERR unknown command %q\r\n", args[0])
		}
		s.mu.Unlock()
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	header = strings.TrimSuffix(strings.TrimSuffix(header, "\n"), "\r")
	if !strings.HasPrefix(header, "*") {
		return nil, fmt.Errorf("unexpected header %q", header)
	}
	count, err := strconv.Atoi(header[1:])
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if _, err := r.ReadString('\n'); err != nil {
			return nil, err
		}
		arg, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		args = append(args, strings.TrimSuffix(strings.TrimSuffix(arg, "\n"), "\r"))
	}
	return args, nil
}

func TestRedisClientSetGetDelete(t *testing.T) {
	server := startFakeRedis(t, "")

	client, err := NewRedisClient(RedisConfig{Address: server.addr(), Timeout: time.Second})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	_, found, err := client.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, client.Set(ctx, "k1", []byte("v1"), time.Minute))

	value, found, err := client.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v1"), value)

	// Keys are namespaced on the wire.
	server.mu.Lock()
	_, prefixed := server.values[redisKeyPrefix+"k1"]
	server.mu.Unlock()
	require.True(t, prefixed)

	require.NoError(t, client.Delete(ctx, "k1", "k2"))

	_, found, err = client.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisClientAuthAndSelect(t *testing.T) {
	server := startFakeRedis(t, "secret")

	client, err := NewRedisClient(RedisConfig{
		Address:  server.addr(),
		Password: "secret",
		DB:       3,
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	server.mu.Lock()
	defer server.mu.Unlock()
	require.Equal(t, []string{"secret"}, server.authed)
	require.Equal(t, []int{3}, server.selected)
}

func TestRedisClientRejectsBadPassword(t *testing.T) {
	server := startFakeRedis(t, "secret")

	_, err := NewRedisClient(RedisConfig{
		Address:  server.addr(),
		Password: "wrong",
		Timeout:  time.Second,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "AUTH failed")
}

func TestRedisClientRequiresAddress(t *testing.T) {
	_, err := NewRedisClient(RedisConfig{})
	require.Error(t, err)
}
