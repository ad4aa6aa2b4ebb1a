package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/hive2hive/h2h/api"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
	"github.com/hive2hive/h2h/modules/locations"
	"github.com/hive2hive/h2h/modules/operations"
	"github.com/hive2hive/h2h/modules/process"
	"github.com/hive2hive/h2h/modules/profilemanager"
	"github.com/hive2hive/h2h/persist"
)

// Config holds every value needed to bring up one h2hd instance - the
// daemon side of one logged-in user, mirroring the shape of the
// teacher's siad Config but scoped to H2H's single-module surface.
type Config struct {
	APIAddr           string
	RPCAddr           string
	RequiredUserAgent string
	APIPassword       string
	DataDir           string

	UserID   string
	Password string
	Pin      string
}

// Server owns every long-lived collaborator a running daemon needs and
// closes them in reverse-acquisition order on shutdown, the way the
// teacher's siad Server closes its modules.
type Server struct {
	config Config
	api    *api.Server
	log    *persist.Logger
	dhtLog net.Listener
	bolt   *dht.BoltOverlay
	pm     *profilemanager.Manager
}

// NewServer wires the DHT overlay, profile manager, location registry/
// notifier, and operations façade together and starts listening for API
// and peer-to-peer traffic.
func NewServer(config Config) (*Server, error) {
	log, err := persist.NewLogger(filepath.Join(config.DataDir, "h2hd.log"))
	if err != nil {
		return nil, err
	}

	creds := modules.UserCredentials{UserID: config.UserID, Password: config.Password, Pin: config.Pin}
	cfg := modules.DefaultConfiguration()

	bolt, err := dht.OpenBoltOverlay(filepath.Join(config.DataDir, "dht.db"))
	if err != nil {
		log.Close()
		return nil, err
	}

	transport := dht.NewPeerTransport()
	overlay := dht.NewNetworkOverlay(bolt, transport)

	rpcListener, err := dht.Listen(config.RPCAddr, func(msg dht.Message) dht.AcceptanceReply {
		log.Println("received direct message:", msg.Kind)
		return dht.ReplyOK
	})
	if err != nil {
		bolt.Close()
		log.Close()
		return nil, err
	}

	if err := profilemanager.Register(context.Background(), &cfg, creds, overlay); err != nil && !strings.Contains(err.Error(), "already registered") {
		rpcListener.Close()
		bolt.Close()
		log.Close()
		return nil, fmt.Errorf("registering profile: %w", err)
	}

	pm := profilemanager.NewManager(&cfg, creds, overlay)
	registry := locations.NewRegistry(overlay)
	notifier := locations.NewNotifier(registry, overlay, creds.UserID, nil)
	ops := operations.New(&cfg, creds, pm, overlay, registry, notifier, process.NewEngine())

	apiSrv, err := api.NewServer(config.APIAddr, config.RequiredUserAgent, config.APIPassword, ops, log)
	if err != nil {
		pm.Stop()
		rpcListener.Close()
		bolt.Close()
		log.Close()
		return nil, err
	}

	return &Server{
		config: config,
		api:    apiSrv,
		log:    log,
		dhtLog: rpcListener,
		bolt:   bolt,
		pm:     pm,
	}, nil
}

// Serve blocks, handling API calls until Close is called.
func (srv *Server) Serve() error {
	return srv.api.Serve()
}

// Close shuts every wired collaborator down in reverse order.
func (srv *Server) Close() error {
	var errs []error
	record := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	record(srv.api.Close())
	srv.pm.Stop()
	record(srv.dhtLog.Close())
	record(srv.bolt.Close())
	record(srv.log.Close())

	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return errors.New(strings.Join(msgs, "; "))
}
