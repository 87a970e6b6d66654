package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
)

// fakeRemote plays the remote logging service.
type fakeRemote struct {
	srv *httptest.Server

	keyCalls atomic.Int32
	logCalls atomic.Int32

	// Calls to /api-keys numbered gateFrom or later signal keyEntered and
	// then wait for keyGate to be closed. gateFrom 0 disables the gate.
	gateFrom   int32
	keyGate    chan struct{}
	keyEntered chan struct{}
	gateOnce   sync.Once

	// keyStatus returns the status for the n-th /api-keys call (1-based).
	keyStatus func(n int32) int

	// logStatus returns the status for the n-th /logs call (1-based).
	logStatus func(n int32) int
	// omitLogID answers successful /logs calls with an empty object.
	omitLogID bool

	mu       sync.Mutex
	payloads []entity.LogPayload
	auths    []string
	encoding []string
}

// newFakeRemote applies configure before the server starts; the fields are
// read-only afterwards.
func newFakeRemote(t *testing.T, configure ...func(*fakeRemote)) *fakeRemote {
	t.Helper()

	f := &fakeRemote{
		keyGate:    make(chan struct{}),
		keyEntered: make(chan struct{}, 64),
		keyStatus:  func(int32) int { return http.StatusCreated },
		logStatus:  func(int32) int { return http.StatusCreated },
	}
	for _, fn := range configure {
		fn(f)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api-keys", f.handleKeys)
	mux.HandleFunc("POST /logs", f.handleLogs)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	t.Cleanup(f.release)
	return f
}

func (f *fakeRemote) release() {
	f.gateOnce.Do(func() { close(f.keyGate) })
}

func (f *fakeRemote) handleKeys(w http.ResponseWriter, r *http.Request) {
	n := f.keyCalls.Add(1)
	if f.gateFrom > 0 && n >= f.gateFrom {
		f.keyEntered <- struct{}{}
		<-f.keyGate
	}

	var body struct {
		Name string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	status := f.keyStatus(n)
	if status >= 300 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"data":{"key":"%s-k%d","secret":"s%d"}}`, body.Name, n, n)
}

func (f *fakeRemote) handleLogs(w http.ResponseWriter, r *http.Request) {
	n := f.logCalls.Add(1)

	var reader io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer zr.Close()
		reader = zr
	}

	var p entity.LogPayload
	if err := json.NewDecoder(reader).Decode(&p); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.auths = append(f.auths, r.Header.Get("Authorization"))
	f.encoding = append(f.encoding, r.Header.Get("Content-Encoding"))
	f.mu.Unlock()

	status := f.logStatus(n)
	w.WriteHeader(status)
	switch {
	case status >= 300:
	case f.omitLogID:
		fmt.Fprint(w, `{}`)
	default:
		fmt.Fprintf(w, `{"logId":"log-%d"}`, n)
	}
}

func (f *fakeRemote) config() Config {
	cfg := DefaultConfig()
	cfg.APIURL = f.srv.URL
	cfg.ProjectName = "shop"
	cfg.Ambient = entity.AmbientStaging
	return cfg
}

func (f *fakeRemote) lastPayload(t *testing.T) entity.LogPayload {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		t.Fatal("no payload received")
	}
	return f.payloads[len(f.payloads)-1]
}

func (f *fakeRemote) encodings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.encoding...)
}

func (f *fakeRemote) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auths...)
}
