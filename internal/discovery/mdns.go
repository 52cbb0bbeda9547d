// ABOUTME: mDNS discovery of internet radio streams on the local network
// ABOUTME: Browses for stream services and turns each answer into a playable station
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Resonate-Protocol/radiodeck/pkg/radio"
	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

// DefaultService is the service type Icecast servers announce
const DefaultService = "_icecast._tcp"

// QueryFunc runs one mDNS query; mdns.Query in production
type QueryFunc func(params *mdns.QueryParam) error

// Config holds discovery configuration
type Config struct {
	Service  string
	Domain   string
	Timeout  time.Duration
	Interval time.Duration
	Logger   zerolog.Logger

	// OnFound is called once per newly discovered stream URL
	OnFound func(radio.Station)

	Query QueryFunc
}

// Browser finds stream services over mDNS
type Browser struct {
	config   Config
	logger   zerolog.Logger
	stations chan radio.Station

	mu   sync.Mutex
	seen map[string]radio.Station
}

// NewBrowser creates a browser
func NewBrowser(config Config) *Browser {
	if config.Service == "" {
		config.Service = DefaultService
	}
	if config.Domain == "" {
		config.Domain = "local"
	}
	if config.Timeout <= 0 {
		config.Timeout = 3 * time.Second
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.Query == nil {
		config.Query = mdns.Query
	}

	return &Browser{
		config:   config,
		logger:   config.Logger.With().Str("component", "discovery").Logger(),
		stations: make(chan radio.Station, 10),
		seen:     make(map[string]radio.Station),
	}
}

// Stations delivers newly discovered stations while Run is active
func (b *Browser) Stations() <-chan radio.Station {
	return b.stations
}

// Browse runs a single query and returns every stream it found
func (b *Browser) Browse(ctx context.Context) ([]radio.Station, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var found []radio.Station
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			if st, ok := StationFromEntry(entry, b.config.Service); ok {
				found = append(found, st)
			}
		}
	}()

	params := &mdns.QueryParam{
		Service:     b.config.Service,
		Domain:      b.config.Domain,
		Timeout:     b.config.Timeout,
		Entries:     entries,
		DisableIPv6: true,
	}
	err := b.config.Query(params)
	close(entries)
	<-done

	if err != nil {
		return found, fmt.Errorf("mdns query %s: %w", b.config.Service, err)
	}
	if ctx.Err() != nil {
		return found, ctx.Err()
	}
	return found, nil
}

// Run browses repeatedly until ctx ends, reporting each new stream once
func (b *Browser) Run(ctx context.Context) error {
	b.logger.Info().Str("service", b.config.Service).Msg("Browsing for streams")
	defer close(b.stations)

	for {
		found, err := b.Browse(ctx)
		if err != nil && ctx.Err() == nil {
			b.logger.Warn().Err(err).Msg("Discovery query failed")
		}
		for _, st := range found {
			if !b.remember(st) {
				continue
			}
			b.logger.Info().Str("name", st.Name).Str("url", st.URL).Msg("Discovered stream")
			if b.config.OnFound != nil {
				b.config.OnFound(st)
			}
			select {
			case b.stations <- st:
			case <-ctx.Done():
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.config.Interval):
		}
	}
}

// Known returns every stream seen so far
func (b *Browser) Known() []radio.Station {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]radio.Station, 0, len(b.seen))
	for _, st := range b.seen {
		out = append(out, st)
	}
	return out
}

func (b *Browser) remember(st radio.Station) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.seen[st.URL]; ok {
		return false
	}
	b.seen[st.URL] = st
	return true
}

// StationFromEntry builds a station from a service answer. The TXT record
// may carry path=, scheme= and name= fields.
func StationFromEntry(entry *mdns.ServiceEntry, service string) (radio.Station, bool) {
	if entry == nil || entry.Port <= 0 {
		return radio.Station{}, false
	}

	host := ""
	switch {
	case entry.AddrV4 != nil:
		host = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		host = entry.AddrV6.String()
	case entry.Host != "":
		host = strings.TrimSuffix(entry.Host, ".")
	default:
		return radio.Station{}, false
	}

	name := instanceName(entry.Name, service)
	scheme := "http"
	path := "/"
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "path":
			path = value
		case "scheme":
			scheme = value
		case "name":
			name = value
		}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	url := fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(host, strconv.Itoa(entry.Port)), path)
	if name == "" {
		name = host
	}
	return radio.Station{Name: name, URL: url}, true
}

// instanceName strips the service and domain from a full instance name
func instanceName(full, service string) string {
	full = strings.TrimSuffix(full, ".")
	if i := strings.Index(full, "."+service); i >= 0 {
		full = full[:i]
	}
	return strings.ReplaceAll(full, `\ `, " ")
}
