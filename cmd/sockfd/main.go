//go:build unix

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Command sockfd drives the raw-descriptor socket primitives from a shell:
// an echo server built on Accept/Recv/Send with bounded waits, and a
// one-shot client built on Connect.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var version = "dev"

type Global struct {
	LogLevel  string          `name:"log-level" help:"logging level (trace, debug, info, warn, error)" default:"info" env:"SOCKFD_LOG_LEVEL"`
	LogFormat string          `name:"log-format" help:"log output format" enum:"text,json" default:"text" env:"SOCKFD_LOG_FORMAT"`
	Context   context.Context `kong:"-"`
}

func (t *Global) configureLogging() error {
	lvl, err := logrus.ParseLevel(t.LogLevel)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	if t.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func main() {
	var shellCli struct {
		Global
		Serve   cmdServe   `cmd:"" help:"run an echo server on a raw listening descriptor"`
		Send    cmdSend    `cmd:"" help:"connect, send a message and print the reply"`
		Version cmdVersion `cmd:"" help:"print the version"`
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	shellCli.Context = ctx

	parser := kong.Parse(
		&shellCli,
		kong.Name("sockfd"),
		kong.Description("timeout-aware socket primitives over raw file descriptors"),
		kong.UsageOnError(),
		kong.Bind(&shellCli.Global),
	)

	parser.FatalIfErrorf(shellCli.Global.configureLogging())
	if err := parser.Run(); err != nil {
		logrus.WithError(err).Error("command failed")
		cancel()
		os.Exit(1)
	}
}

type cmdVersion struct{}

func (cmdVersion) Run() error {
	_, err := os.Stdout.WriteString(version + "\n")
	return err
}
