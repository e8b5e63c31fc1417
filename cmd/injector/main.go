/*
 * MIT License
 *
 * Copyright (c) 2026 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command injector runs one ouinet-style HTTP injector node: it accepts
// connections on every configured listener, signs and forwards the
// responses it fetches from origins, and exposes a Prometheus scrape
// endpoint and a health self-check alongside the proxy itself.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/mhqz/ouinet-injector/accept"
	"github.com/mhqz/ouinet-injector/cancel"
	"github.com/mhqz/ouinet-injector/config"
	"github.com/mhqz/ouinet-injector/dialer"
	"github.com/mhqz/ouinet-injector/inject"
	"github.com/mhqz/ouinet-injector/keymaterial"
	"github.com/mhqz/ouinet-injector/logger"
	"github.com/mhqz/ouinet-injector/metrics"
	"github.com/mhqz/ouinet-injector/monitor"
	"github.com/mhqz/ouinet-injector/pool"
	"github.com/mhqz/ouinet-injector/protocol"
	"github.com/mhqz/ouinet-injector/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "injector",
		Short:         "ouinet-style HTTP injector node",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML configuration file")
	if err := config.BindFlags(cmd, v); err != nil {
		panic(err)
	}

	return cmd
}

func run(ctx context.Context, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("injector: %w", err)
		}
	}

	cfg, err := config.Resolve(v)
	if err != nil {
		return fmt.Errorf("injector: %w", err)
	}

	log := logger.New(logger.ParseLevel(cfg.LogLevel), os.Stderr)

	priv, err := keymaterial.LoadSigningKey(cfg.PrivateKeyFile)
	if err != nil {
		return fmt.Errorf("injector: loading signing key: %w", err)
	}
	signer, err := inject.NewSigner(priv)
	if err != nil {
		return fmt.Errorf("injector: building signer: %w", err)
	}

	creds, err := parseCredentials(cfg.Credentials)
	if err != nil {
		return fmt.Errorf("injector: %w", err)
	}

	var listenerTLS *tls.Config
	if cfg.TLSCertFile != "" {
		listenerTLS, err = keymaterial.LoadServerTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("injector: loading listener TLS material: %w", err)
		}
	}

	connPool := pool.New()
	originDialer := dialer.New(cfg.OriginDialTimeout, nil)
	checker := monitor.New(firstListenAddr(cfg), connPool, 64, 0)
	reg := metrics.New()
	tok := cancel.New()

	srv := &server.Server{
		Dialer:      originDialer,
		Pool:        connPool,
		Signer:      signer,
		Credentials: creds,
		Log:         log,
		IdleTimeout: cfg.IdleTimeout.Std(),
		Monitor:     checker,
	}

	config.Watch(v, log, func(next *config.Config) {
		log.Entry(logger.InfoLevel, "configuration reloaded").Log()
		newCreds, err := parseCredentials(next.Credentials)
		if err != nil {
			log.Entry(logger.WarnLevel, "reloaded credentials rejected, keeping previous set").
				Field("error", err.Error()).Log()
			return
		}
		srv.SetCredentials(newCreds)
		srv.SetIdleTimeout(next.IdleTimeout.Std())
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	go func() {
		<-ctx.Done()
		tok.Fire()
	}()

	listeners, err := buildListeners(cfg, listenerTLS)
	if err != nil {
		return fmt.Errorf("injector: %w", err)
	}
	if len(listeners) == 0 {
		return fmt.Errorf("injector: no implemented transport among the configured listen-on-* addresses")
	}

	var wg sync.WaitGroup
	for _, ls := range listeners {
		ls := ls

		t, err := accept.New(ls.kind, ls.addr, ls.tls)
		if err != nil {
			return fmt.Errorf("injector: listener %s %s: %w", ls.kind, ls.addr, err)
		}
		checker.MarkRunning(true)

		wg.Add(1)
		go func() {
			defer wg.Done()
			handler := func(hctx context.Context, conn net.Conn, id uint64) {
				srv.Serve(hctx, conn, tok, id)
			}
			if err := accept.Loop(tok, t, handler, log); err != nil {
				log.Entry(logger.ErrorLevel, "listener loop exited").
					Field("transport", ls.kind.String()).
					Field("addr", ls.addr).
					ErrorAdd(true, err).Log()
			}
		}()
	}

	if cfg.MetricsListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reg.Serve(cfg.MetricsListen); err != nil {
				log.Entry(logger.WarnLevel, "metrics listener exited").
					Field("addr", cfg.MetricsListen).
					ErrorAdd(true, err).Log()
			}
		}()
	}

	wg.Wait()
	connPool.CloseAll()
	return nil
}

type listenerSpec struct {
	kind protocol.Transport
	addr string
	tls  *tls.Config
}

// buildListeners expands every listen-on-* address group into one spec
// per address, attaching the loaded TLS material to the TCP+TLS group.
// Transports accept.New doesn't implement are still collected here:
// the loop above surfaces accept.ErrUnsupportedTransport for each one
// rather than silently skipping a listener the operator asked for.
func buildListeners(cfg *config.Config, listenerTLS *tls.Config) ([]listenerSpec, error) {
	var specs []listenerSpec

	for _, addr := range cfg.ListenTCP {
		specs = append(specs, listenerSpec{kind: protocol.TransportTCP, addr: addr})
	}
	for _, addr := range cfg.ListenTCPTLS {
		if listenerTLS == nil {
			return nil, fmt.Errorf("listen-on-tcp-tls configured without tls-cert/tls-key")
		}
		specs = append(specs, listenerSpec{kind: protocol.TransportTCPTLS, addr: addr, tls: listenerTLS})
	}

	groups := []struct {
		addrs []string
		kind  protocol.Transport
	}{
		{cfg.ListenUTP, protocol.TransportUTP},
		{cfg.ListenUTPTLS, protocol.TransportUTPTLS},
		{cfg.ListenI2P, protocol.TransportI2P},
		{cfg.ListenObfs2, protocol.TransportObfs2},
		{cfg.ListenObfs3, protocol.TransportObfs3},
		{cfg.ListenObfs4, protocol.TransportObfs4},
		{cfg.ListenLampshd, protocol.TransportLampshade},
		{cfg.ListenBEP5, protocol.TransportBEP5},
	}
	for _, g := range groups {
		for _, addr := range g.addrs {
			specs = append(specs, listenerSpec{kind: g.kind, addr: addr})
		}
	}

	return specs, nil
}

func firstListenAddr(cfg *config.Config) string {
	for _, group := range [][]string{cfg.ListenTCP, cfg.ListenTCPTLS} {
		if len(group) > 0 {
			return group[0]
		}
	}
	return ""
}

func parseCredentials(raw []string) ([]server.Credential, error) {
	creds := make([]server.Credential, 0, len(raw))
	for _, entry := range raw {
		user, pass, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("malformed credentials entry %q, want user:pass", entry)
		}
		creds = append(creds, server.Credential{User: user, Pass: pass})
	}
	return creds, nil
}
