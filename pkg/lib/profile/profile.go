package profile

import (
	"net"
	"net/http"
	"net/http/pprof"
)

type profileConfig struct {
	pprof     bool
	cmdline   bool
	profile   bool
	symbol    bool
	trace     bool
	localOnly bool
}

// Option applies a configuration option to the given config.
type Option func(p *profileConfig)

// WithIndex registers the pprof index and the named profiles under it.
func WithIndex() Option {
	return func(p *profileConfig) { p.pprof = true }
}

func WithCmdline() Option {
	return func(p *profileConfig) { p.cmdline = true }
}

// WithProfile registers the CPU profile.
func WithProfile() Option {
	return func(p *profileConfig) { p.profile = true }
}

func WithSymbol() Option {
	return func(p *profileConfig) { p.symbol = true }
}

// WithTrace registers the execution tracer.
func WithTrace() Option {
	return func(p *profileConfig) { p.trace = true }
}

// LocalOnly refuses requests that do not come from a loopback address.
func LocalOnly() Option {
	return func(p *profileConfig) { p.localOnly = true }
}

func (p *profileConfig) apply(options []Option) {
	for _, o := range options {
		o(p)
	}
	if !p.pprof && !p.cmdline && !p.profile && !p.symbol && !p.trace {
		// No endpoint selected, default to all
		p.pprof = true
		p.cmdline = true
		p.profile = true
		p.symbol = true
		p.trace = true
	}
}

func defaultProfileConfig() *profileConfig {
	return &profileConfig{}
}

// RegisterHandlers registers profile Handlers with the given ServeMux.
//
// The Handlers registered are determined by the given options.
// If no endpoint is selected, all available handlers are registered.
func RegisterHandlers(mux *http.ServeMux, options ...Option) {
	config := defaultProfileConfig()
	config.apply(options)

	wrap := func(h http.HandlerFunc) http.Handler {
		if config.localOnly {
			return requireLoopback(h)
		}
		return h
	}
	if config.pprof {
		mux.Handle("/debug/pprof/", wrap(pprof.Index))
	}
	if config.cmdline {
		mux.Handle("/debug/pprof/cmdline", wrap(pprof.Cmdline))
	}
	if config.profile {
		mux.Handle("/debug/pprof/profile", wrap(pprof.Profile))
	}
	if config.symbol {
		mux.Handle("/debug/pprof/symbol", wrap(pprof.Symbol))
	}
	if config.trace {
		mux.Handle("/debug/pprof/trace", wrap(pprof.Trace))
	}
}

func requireLoopback(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if ip := net.ParseIP(host); err != nil || ip == nil || !ip.IsLoopback() {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		h.ServeHTTP(w, r)
	})
}
