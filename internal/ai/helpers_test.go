package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

// localServer serves on 127.0.0.1 only. httptest may pick an IPv6 loopback
// that sandboxed runners refuse.
type localServer struct {
	URL string
	srv *http.Server
}

// newIPv4Server starts handler on a tcp4 listener and stops it at test cleanup.
func newIPv4Server(t *testing.T, handler http.Handler) *localServer {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		t.Skipf("cannot open a local listener: %v", err)
	}
	if err != nil {
		t.Fatalf("listen tcp4: %v", err)
	}
	s := &localServer{URL: "http://" + ln.Addr().String(), srv: &http.Server{Handler: handler}}
	go func() { _ = s.srv.Serve(ln) }()
	t.Cleanup(s.Close)
	return s
}

func (s *localServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

// scriptedStatuses answers the n-th POST to path with statuses[n], repeating
// the last status once the script runs out. headers[n], when present, is
// added to that reply. 2xx replies carry okBody.
func scriptedStatuses(t *testing.T, path string, statuses []int, headers []http.Header, okBody any) *localServer {
	t.Helper()
	var calls atomic.Int32
	return newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		n := min(int(calls.Add(1))-1, len(statuses)-1)
		if n < len(headers) {
			for k, vals := range headers[n] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		status := statuses[n]
		w.WriteHeader(status)
		if status >= 200 && status < 300 {
			_ = json.NewEncoder(w).Encode(okBody)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": http.StatusText(status)}})
	}))
}
