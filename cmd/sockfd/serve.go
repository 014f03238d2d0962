//go:build unix

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package main

import (
	"context"
	"time"

	"github.com/momentics/sockfd/api"
	"github.com/momentics/sockfd/control"
	"github.com/momentics/sockfd/fdmgr"
	"github.com/momentics/sockfd/socket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type cmdServe struct {
	Listen        string        `name:"listen" help:"IPv4 literal and port to listen on" default:"127.0.0.1:5555" env:"SOCKFD_LISTEN"`
	Backlog       int           `name:"backlog" help:"listen backlog" default:"128"`
	AcceptTimeout time.Duration `name:"accept-timeout" help:"bound on each accept wait; negative blocks" default:"1s"`
	IOTimeout     time.Duration `name:"io-timeout" help:"idle bound on each recv/send wait; negative blocks" default:"5s"`
	BufferSize    int           `name:"buffer-size" help:"recv buffer capacity" default:"4096"`
	MaxConns      int           `name:"max-conns" help:"exit after serving this many connections (0 = unlimited)" default:"0"`
}

func (t cmdServe) config() (*control.Config, error) {
	ep, err := control.ParseEndpoint(t.Listen)
	if err != nil {
		return nil, err
	}
	cfg := control.DefaultConfig()
	cfg.Endpoint = ep
	cfg.Backlog = t.Backlog
	cfg.AcceptTimeout = t.AcceptTimeout
	cfg.IOTimeout = t.IOTimeout
	cfg.BufferSize = t.BufferSize
	cfg.MaxConns = t.MaxConns
	return cfg, cfg.Validate()
}

func (t cmdServe) Run(gctx *Global) error {
	cfg, err := t.config()
	if err != nil {
		return err
	}

	store := control.NewConfigStore()
	store.OnReload(func(snap map[string]any) {
		logrus.WithFields(logrus.Fields(snap)).Info("configuration loaded")
	})
	store.SetConfig(cfg.Snapshot())

	metrics := control.NewMetricsRegistry()
	defer func() {
		logrus.WithFields(stopFields(store, metrics)).Info("server stopped")
	}()

	return serve(gctx.Context, cfg, metrics, func(ep api.Endpoint) {
		logrus.WithField("endpoint", ep.String()).Info("listening")
	})
}

// stopFields reports the configuration the server ran with, as published
// in store, next to the final counters. Counters win on a name clash.
func stopFields(store *control.ConfigStore, metrics *control.MetricsRegistry) logrus.Fields {
	fields := logrus.Fields(store.GetSnapshot())
	counters, _ := metrics.GetSnapshot()
	for k, v := range counters {
		fields[k] = v
	}
	return fields
}

// serve runs the accept loop until ctx ends or cfg.MaxConns connections
// have been handed to echo workers, then waits for the workers.
// Cancellation is observed between accept waits, so a negative
// AcceptTimeout only stops after the next connection.
func serve(ctx context.Context, cfg *control.Config, metrics *control.MetricsRegistry, ready func(api.Endpoint)) error {
	ln, err := socket.Create()
	if err != nil {
		return errors.Wrap(err, "create")
	}
	defer fdmgr.Close(ln)

	if err = socket.BindEndpoint(ln, cfg.Endpoint); err != nil {
		return errors.Wrapf(err, "bind %s", cfg.Endpoint)
	}
	if err = socket.Listen(ln, cfg.Backlog); err != nil {
		return errors.Wrap(err, "listen")
	}

	local, err := socket.LocalEndpoint(ln)
	if err != nil {
		return errors.Wrap(err, "getsockname")
	}
	if ready != nil {
		ready(local)
	}

	g, gctx := errgroup.WithContext(ctx)
	for served := 0; cfg.MaxConns == 0 || served < cfg.MaxConns; {
		if gctx.Err() != nil {
			break
		}

		conn, err := socket.Accept(ln, cfg.AcceptTimeout)
		if api.IsTimeout(err) {
			metrics.Add(control.MetricTimeouts, 1)
			continue
		}
		if err != nil {
			metrics.Add(control.MetricErrors, 1)
			_ = g.Wait()
			return errors.Wrap(err, "accept")
		}

		served++
		metrics.Add(control.MetricAccepted, 1)
		g.Go(func() error {
			echo(gctx, conn, cfg, metrics)
			return nil
		})
	}

	return g.Wait()
}

// echo returns every byte it receives on conn until the peer closes, an
// I/O wait times out, or ctx ends. It owns conn and closes it.
func echo(ctx context.Context, conn api.Handle, cfg *control.Config, metrics *control.MetricsRegistry) {
	log := logrus.WithField("fd", int(conn))
	if peer, err := socket.PeerEndpoint(conn); err == nil {
		log = log.WithField("peer", peer.String())
	}
	log.Debug("connection accepted")

	defer func() {
		if err := fdmgr.Close(conn); err != nil {
			log.WithError(err).Warn("close failed")
		}
		metrics.Add(control.MetricClosed, 1)
		log.Debug("connection closed")
	}()

	buf := make([]byte, cfg.BufferSize)
	for ctx.Err() == nil {
		n, err := socket.Recv(conn, buf, cfg.IOTimeout)
		switch {
		case api.IsTimeout(err):
			metrics.Add(control.MetricTimeouts, 1)
			log.Debug("idle connection dropped")
			return
		case err != nil:
			metrics.Add(control.MetricErrors, 1)
			log.WithError(err).Warn("recv failed")
			return
		case n == 0:
			return
		}
		metrics.Add(control.MetricBytesIn, int64(n))

		sent, err := sendAll(conn, buf[:n], cfg.IOTimeout)
		metrics.Add(control.MetricBytesOut, int64(sent))
		if err != nil {
			if api.IsTimeout(err) {
				metrics.Add(control.MetricTimeouts, 1)
			} else {
				metrics.Add(control.MetricErrors, 1)
			}
			log.WithError(err).Warn("send failed")
			return
		}
	}
}

// sendAll loops over short writes; socket.Send never does.
func sendAll(h api.Handle, p []byte, timeout time.Duration) (int, error) {
	total := 0
	for total < len(p) {
		n, err := socket.Send(h, p[total:], timeout)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
