// ABOUTME: Tests for mDNS stream discovery
// ABOUTME: Drives the browser with a scripted query function
package discovery

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/radiodeck/pkg/radio"
	"github.com/hashicorp/mdns"
)

func scriptedQuery(entries ...*mdns.ServiceEntry) QueryFunc {
	return func(params *mdns.QueryParam) error {
		for _, e := range entries {
			params.Entries <- e
		}
		return nil
	}
}

func TestNewBrowserDefaults(t *testing.T) {
	b := NewBrowser(Config{})
	if b.config.Service != DefaultService {
		t.Errorf("service = %q", b.config.Service)
	}
	if b.config.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", b.config.Timeout)
	}
	if b.Stations() == nil {
		t.Error("stations channel is nil")
	}
}

func TestStationFromEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  radio.Station
		ok    bool
	}{
		{
			name: "ipv4 with path",
			entry: &mdns.ServiceEntry{
				Name:       `Kitchen\ Radio._icecast._tcp.local.`,
				AddrV4:     net.ParseIP("192.168.1.20"),
				Port:       8000,
				InfoFields: []string{"path=/live.mp3"},
			},
			want: radio.Station{Name: "Kitchen Radio", URL: "http://192.168.1.20:8000/live.mp3"},
			ok:   true,
		},
		{
			name: "txt overrides",
			entry: &mdns.ServiceEntry{
				Name:       "box._icecast._tcp.local.",
				AddrV4:     net.ParseIP("10.0.0.5"),
				Port:       443,
				InfoFields: []string{"scheme=https", "name=Studio", "path=stream"},
			},
			want: radio.Station{Name: "Studio", URL: "https://10.0.0.5:443/stream"},
			ok:   true,
		},
		{
			name: "ipv6",
			entry: &mdns.ServiceEntry{
				Name:   "v6._icecast._tcp.local.",
				AddrV6: net.ParseIP("fe80::1"),
				Port:   8000,
			},
			want: radio.Station{Name: "v6", URL: "http://[fe80::1]:8000/"},
			ok:   true,
		},
		{
			name:  "no address",
			entry: &mdns.ServiceEntry{Name: "ghost._icecast._tcp.local.", Port: 8000},
		},
		{
			name:  "no port",
			entry: &mdns.ServiceEntry{Name: "x", AddrV4: net.ParseIP("10.0.0.1")},
		},
		{
			name: "nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StationFromEntry(tt.entry, DefaultService)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBrowse(t *testing.T) {
	b := NewBrowser(Config{Query: scriptedQuery(
		&mdns.ServiceEntry{Name: "a._icecast._tcp.local.", AddrV4: net.ParseIP("10.0.0.1"), Port: 8000},
		&mdns.ServiceEntry{Name: "broken._icecast._tcp.local."},
		&mdns.ServiceEntry{Name: "b._icecast._tcp.local.", AddrV4: net.ParseIP("10.0.0.2"), Port: 8000},
	)})

	found, err := b.Browse(context.Background())
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if len(found) != 2 || found[0].Name != "a" || found[1].Name != "b" {
		t.Errorf("found %+v", found)
	}
}

func TestBrowseQueryError(t *testing.T) {
	b := NewBrowser(Config{Query: func(*mdns.QueryParam) error {
		return errors.New("no multicast interface")
	}})
	if _, err := b.Browse(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestRunReportsEachStreamOnce(t *testing.T) {
	entry := &mdns.ServiceEntry{Name: "a._icecast._tcp.local.", AddrV4: net.ParseIP("10.0.0.1"), Port: 8000}

	var mu sync.Mutex
	calls := 0
	found := 0
	b := NewBrowser(Config{
		Interval: time.Millisecond,
		Query: func(params *mdns.QueryParam) error {
			mu.Lock()
			calls++
			mu.Unlock()
			params.Entries <- entry
			return nil
		},
		OnFound: func(radio.Station) {
			mu.Lock()
			found++
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case st := <-b.Stations():
		if st.URL != "http://10.0.0.1:8000/" {
			t.Errorf("station = %+v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no station delivered")
	}

	// Let a few more sweeps run
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n >= 3 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if found != 1 {
		t.Errorf("OnFound called %d times, want 1", found)
	}
	if len(b.Known()) != 1 {
		t.Errorf("known = %d", len(b.Known()))
	}
}
