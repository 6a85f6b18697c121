package streamecho

import (
	"log"

	"github.com/indigo-web/streamecho/config"
	"github.com/indigo-web/streamecho/internal/address"
	"github.com/indigo-web/streamecho/internal/server"
	"github.com/indigo-web/streamecho/transport"
)

type Logger = server.Logger

// App echoes the body of every incoming request back in a chunked response, streaming it
// piece by piece as it's being received.
type App struct {
	addr       string
	cfg        *config.Config
	logger     Logger
	hooks      hooks
	transports []boundTransport
	supervisor transport.Supervisor
}

// New returns a new App instance. The address is used by transports listening on
// an empty address.
func New(addr string) *App {
	return &App{
		addr:       address.Normalize(addr),
		cfg:        config.Default(),
		logger:     log.Default(),
		supervisor: transport.NewSupervisor(),
	}
}

// Tune replaces default config.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// Logger replaces the default logger, which is log.Default().
func (a *App) Logger(logger Logger) *App {
	a.logger = logger
	return a
}

// NotifyOnStart calls the callback at the moment, when all the transports are bound.
// However, it isn't strongly guaranteed that they'll be able to accept new connections
// immediately
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback at the moment, when all the transports are down. It's
// guaranteed, that at the moment as the callback is called, the server isn't able to accept
// any new connections and all the clients are already disconnected
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Listen adds a new transport. An empty addr means the address the App was created with.
func (a *App) Listen(addr string, t Transport) *App {
	if len(addr) == 0 {
		addr = a.addr
	}

	a.transports = append(a.transports, boundTransport{
		addr:      address.Normalize(addr),
		Transport: t,
	})

	return a
}

// Serve binds all the transports and blocks until either any of them fails or Stop
// is called. If no transports were added, plain TCP on the App's address is used.
func (a *App) Serve() error {
	if len(a.transports) == 0 {
		a.Listen(a.addr, TCP())
	}

	handler := server.NewHandler(a.cfg, a.logger)

	// everything that can fail without side effects goes first, so no socket is left
	// bound in case of an error
	for i := range a.transports {
		t := &a.transports[i]
		inner, err := t.build(t.addr, a.logger)
		if err != nil {
			return err
		}

		t.inner = inner
	}

	for _, t := range a.transports {
		if err := a.supervisor.Add(t.addr, t.inner, handler); err != nil {
			return err
		}
	}

	callIfNotNil(a.hooks.OnStart)
	err := a.supervisor.Run(a.cfg.NET)
	callIfNotNil(a.hooks.OnStop)

	return err
}

// Stop stops all the transports and waits until every connection is closed. Must be
// called only while Serve is running.
func (a *App) Stop() {
	a.supervisor.Stop()
}

type boundTransport struct {
	addr  string
	inner transport.Transport
	Transport
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
