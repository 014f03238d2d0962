//go:build unix

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package main

import (
	"bytes"
	"os"
	"time"

	"github.com/momentics/sockfd/api"
	"github.com/momentics/sockfd/control"
	"github.com/momentics/sockfd/fdmgr"
	"github.com/momentics/sockfd/socket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type cmdSend struct {
	Connect    string        `arg:"" name:"endpoint" help:"IPv4 literal and port to connect to"`
	Message    string        `arg:"" name:"message" help:"payload to send"`
	Timeout    time.Duration `name:"timeout" help:"bound on each recv/send wait; negative blocks" default:"5s"`
	BufferSize int           `name:"buffer-size" help:"recv buffer capacity" default:"4096"`
}

func (t cmdSend) Run(gctx *Global) error {
	ep, err := control.ParseEndpoint(t.Connect)
	if err != nil {
		return err
	}
	if t.BufferSize < 1 {
		return errors.Errorf("buffer size must be positive, got %d", t.BufferSize)
	}

	reply, err := roundTrip(ep, []byte(t.Message), t.Timeout, t.BufferSize)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(reply, '\n'))
	return err
}

// roundTrip connects to ep, sends msg, half-closes and collects the reply
// until the peer closes or a wait times out.
func roundTrip(ep api.Endpoint, msg []byte, timeout time.Duration, bufSize int) ([]byte, error) {
	h, err := socket.Create()
	if err != nil {
		return nil, errors.Wrap(err, "create")
	}
	defer fdmgr.Close(h)

	if err = socket.ConnectEndpoint(h, ep); err != nil {
		return nil, errors.Wrapf(err, "connect %s", ep)
	}
	log := logrus.WithFields(logrus.Fields{"fd": int(h), "endpoint": ep.String()})
	log.Debug("connected")

	if _, err = sendAll(h, msg, timeout); err != nil {
		return nil, errors.Wrap(err, "send")
	}
	if err = fdmgr.Shutdown(h, unix.SHUT_WR); err != nil {
		return nil, errors.Wrap(err, "shutdown")
	}

	var reply bytes.Buffer
	buf := make([]byte, bufSize)
	for {
		n, err := socket.Recv(h, buf, timeout)
		if api.IsTimeout(err) {
			log.Debug("reply wait timed out")
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "recv")
		}
		if n == 0 {
			break
		}
		reply.Write(buf[:n])
	}
	return reply.Bytes(), nil
}
