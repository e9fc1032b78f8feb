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

// fakeRedis answers the handful of commands RedisClient issues.
type fakeRedis struct {
	mu       sync.Mutex
	values   map[string]string
	expiries map[string]string
	password string
}

func startFakeRedis(t *testing.T, password string) (*fakeRedis, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	srv := &fakeRedis{values: map[string]string{}, expiries: map[string]string{}, password: password}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.handle(conn)
		}
	}()
	return srv, ln.Addr().String()
}

func (f *fakeRedis) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	authed := f.password == ""

	for {
		reply, err := readRESP(r)
		if err != nil {
			return
		}
		items := reply.([]any)
		args := make([]string, len(items))
		for i, item := range items {
			args[i] = string(item.([]byte))
		}

		f.mu.Lock()
		var out string
		switch cmd := strings.ToUpper(args[0]); {
		case cmd == "AUTH":
			if args[len(args)-1] == f.password {
				authed = true
				out = "+OK\r\n"
			} else {
				out = "-WRONGPASS invalid password\r\n"
			}
		case !authed:
			out = "-NOAUTH Authentication required\r\n"
		case cmd == "PING":
			out = "+PONG\r\n"
		case cmd == "SELECT":
			out = "+OK\r\n"
		case cmd == "GET":
			if v, ok := f.values[args[1]]; ok {
				out = fmt.Sprintf("$%d\r\n%s\r\n", len(v), v)
			} else {
				out = "$-1\r\n"
			}
		case cmd == "SET":
			f.values[args[1]] = args[2]
			if len(args) == 5 {
				f.expiries[args[1]] = args[4]
			}
			out = "+OK\r\n"
		case cmd == "INCR":
			n, _ := strconv.ParseInt(f.values[args[1]], 10, 64)
			n++
			f.values[args[1]] = strconv.FormatInt(n, 10)
			out = fmt.Sprintf(":%d\r\n", n)
		case cmd == "PEXPIRE":
			f.expiries[args[1]] = args[2]
			out = ":1\r\n"
		case cmd == "DEL":
			for _, key := range args[1:] {
				delete(f.values, key)
			}
			out = fmt.Sprintf(":%d\r\n", len(args)-1)
		default:
			out = "-ERR unknown command\r\n"
		}
		f.mu.Unlock()

		if _, err := conn.Write([]byte(out)); err != nil {
			return
		}
	}
}

func (f *fakeRedis) expiry(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expiries[key]
}

func TestRedisClientCommands(t *testing.T) {
	srv, addr := startFakeRedis(t, "s3cret")
	client, err := NewRedisClient(context.Background(), RedisConfig{Address: addr, Password: "s3cret", DB: 2, Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	key := ImageKey("a  double  spaced::prompt")
	_, ok, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, client.Set(ctx, key, []byte("b64"), time.Minute))
	require.Equal(t, "60000", srv.expiry(key))

	value, ok, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("b64"), value)

	n, err := client.IncrementWithTTL(ctx, "counter", time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, "3600000", srv.expiry("counter"))

	n, err = client.IncrementWithTTL(ctx, "counter", time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	require.NoError(t, client.Delete(ctx, key, "counter"))
	_, ok, err = client.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisClientKeyPrefix(t *testing.T) {
	srv, addr := startFakeRedis(t, "")
	client, err := NewRedisClient(context.Background(), RedisConfig{Address: addr, KeyPrefix: "gallery:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", []byte("v"), 0))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Equal(t, "v", srv.values["gallery:k"])
	require.Empty(t, srv.expiries["gallery:k"])
}

func TestRedisClientAuthFailure(t *testing.T) {
	_, addr := startFakeRedis(t, "right")
	_, err := NewRedisClient(context.Background(), RedisConfig{Address: addr, Password: "wrong"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "AUTH failed")
}

func TestRedisClientRequiresAddress(t *testing.T) {
	_, err := NewRedisClient(context.Background(), RedisConfig{Address: "  "})
	require.Error(t, err)
}
