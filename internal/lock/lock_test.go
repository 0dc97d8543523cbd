package lock

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kvServer speaks just enough RESP2 for SET NX, GET, DEL and the release script.
type kvServer struct {
	ln   net.Listener
	mu   sync.Mutex
	data map[string]string
}

func startKV(t *testing.T) *kvServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &kvServer{ln: ln, data: map[string]string{}}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *kvServer) client(t *testing.T) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: s.ln.Addr().String(), Protocol: 2, DisableIdentity: true})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func (s *kvServer) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *kvServer) set(key, val string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = val
}

func (s *kvServer) serve(conn net.Conn) {
	defer conn.Close()
	rd := bufio.NewReader(conn)
	for {
		args, err := readCommand(rd)
		if err != nil {
			return
		}
		if _, err := io.WriteString(conn, s.handle(args)); err != nil {
			return
		}
	}
}

func (s *kvServer) handle(args []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch strings.ToUpper(args[0]) {
	case "PING":
		return "+PONG\r\n"
	case "SET":
		nx := false
		for _, a := range args[3:] {
			if strings.EqualFold(a, "NX") {
				nx = true
			}
		}
		if _, ok := s.data[args[1]]; ok && nx {
			return "$-1\r\n"
		}
		s.data[args[1]] = args[2]
		return "+OK\r\n"
	case "GET":
		v, ok := s.data[args[1]]
		if !ok {
			return "$-1\r\n"
		}
		return "$" + strconv.Itoa(len(v)) + "\r\n" + v + "\r\n"
	case "DEL":
		n := 0
		for _, k := range args[1:] {
			if _, ok := s.data[k]; ok {
				delete(s.data, k)
				n++
			}
		}
		return ":" + strconv.Itoa(n) + "\r\n"
	case "EVALSHA":
		return "-NOSCRIPT No matching script. Please use EVAL.\r\n"
	case "EVAL":
		// EVAL script 1 key token
		key, token := args[3], args[4]
		if s.data[key] == token {
			delete(s.data, key)
			return ":1\r\n"
		}
		return ":0\r\n"
	}
	return "-ERR unknown command '" + args[0] + "'\r\n"
}

func readCommand(rd *bufio.Reader) ([]string, error) {
	line, err := rd.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "*")))
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		head, err := rd.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(head, "$")))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(rd, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	kv := startKV(t)
	l := NewRedisLocker(kv.client(t), "lock:", time.Minute, 60*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "booking:b1")
	require.NoError(t, err)
	_, held := kv.get("lock:booking:b1")
	assert.True(t, held)

	_, err = l.Acquire(ctx, "booking:b1")
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.Acquire(ctx, "booking:b2")
	require.NoError(t, err)
	other()

	release()
	_, held = kv.get("lock:booking:b1")
	assert.False(t, held)

	again, err := l.Acquire(ctx, "booking:b1")
	require.NoError(t, err)
	again()
}

func TestReleaseLeavesLockTakenOverByAnotherHolder(t *testing.T) {
	kv := startKV(t)
	l := NewRedisLocker(kv.client(t), "lock:", time.Minute, 0)

	release, err := l.Acquire(context.Background(), "booking:b1")
	require.NoError(t, err)
	// our key expired and someone else took it
	kv.set("lock:booking:b1", "foreign-token")

	release()
	v, held := kv.get("lock:booking:b1")
	assert.True(t, held)
	assert.Equal(t, "foreign-token", v)
}

func TestAcquireStopsWaitingWhenContextEnds(t *testing.T) {
	kv := startKV(t)
	kv.set("lock:booking:b1", "someone")
	l := NewRedisLocker(kv.client(t), "lock:", time.Minute, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := l.Acquire(ctx, "booking:b1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAcquireSurfacesRedisFailures(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	l := NewRedisLocker(rdb, "lock:", time.Minute, time.Second)

	_, err = l.Acquire(context.Background(), "booking:b1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), "redis setnx")
}

func TestNoopLockerNeverBlocks(t *testing.T) {
	var l Locker = NoopLocker{}
	r1, err := l.Acquire(context.Background(), "booking:b1")
	require.NoError(t, err)
	r2, err := l.Acquire(context.Background(), "booking:b1")
	require.NoError(t, err)
	r1()
	r2()
}
