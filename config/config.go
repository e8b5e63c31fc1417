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

// Package config binds the injector's CLI/config surface (spec §6) to a
// validated Config struct, through a cobra command whose flags are
// mirrored into viper so either a flag, an environment variable, or a
// config file key can set any option. A fsnotify watch on the loaded
// config file re-resolves it on every change and hands the new Config
// to a callback; cmd/injector applies the reloaded credentials and idle
// timeout from it without a restart (the listener set is not reloaded).
package config

import (
	"fmt"
	"strings"

	"github.com/mhqz/ouinet-injector/durationx"

	validator "github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the fully resolved, validated configuration for one
// injector process.
type Config struct {
	Repo string `mapstructure:"repo" validate:"required"`

	ListenTCP     []string `mapstructure:"listen-on-tcp"`
	ListenTCPTLS  []string `mapstructure:"listen-on-tcp-tls"`
	ListenUTP     []string `mapstructure:"listen-on-utp"`
	ListenUTPTLS  []string `mapstructure:"listen-on-utp-tls"`
	ListenI2P     []string `mapstructure:"listen-on-i2p"`
	ListenObfs2   []string `mapstructure:"listen-on-obfs2"`
	ListenObfs3   []string `mapstructure:"listen-on-obfs3"`
	ListenObfs4   []string `mapstructure:"listen-on-obfs4"`
	ListenLampshd []string `mapstructure:"listen-on-lampshade"`
	ListenBEP5    []string `mapstructure:"listen-on-bep5"`

	Credentials []string `mapstructure:"credentials"`

	OpenFileLimit uint64 `mapstructure:"open-file-limit" validate:"gte=0"`

	// PrivateKeyFile is the Ed25519 signing key the injector uses to
	// sign the responses it forwards (spec §6's cache-private-key=<path>).
	PrivateKeyFile string `mapstructure:"cache-private-key" validate:"required"`

	TLSCertFile string `mapstructure:"tls-cert"`
	TLSKeyFile  string `mapstructure:"tls-key"`

	// IdleTimeout and OriginDialTimeout are resolved from their viper
	// keys explicitly in Resolve below (mapstructure has no decode hook
	// for this named duration type), hence "-" here.
	IdleTimeout       durationx.Duration `mapstructure:"-"`
	OriginDialTimeout durationx.Duration `mapstructure:"-"`

	LogLevel string `mapstructure:"log-level" validate:"omitempty,oneof=error warn info debug"`

	MetricsListen string `mapstructure:"metrics-listen"`
}

// AnyListener reports whether at least one transport has a bind address
// (spec §6: the process must be given something to listen on).
func (c *Config) AnyListener() bool {
	return len(c.ListenTCP) > 0 ||
		len(c.ListenTCPTLS) > 0 ||
		len(c.ListenUTP) > 0 ||
		len(c.ListenUTPTLS) > 0 ||
		len(c.ListenI2P) > 0 ||
		len(c.ListenObfs2) > 0 ||
		len(c.ListenObfs3) > 0 ||
		len(c.ListenObfs4) > 0 ||
		len(c.ListenLampshd) > 0 ||
		len(c.ListenBEP5) > 0
}

// Default returns the Config that Resolve starts from. Its idle and
// origin-dial timeouts (30s, 10s) are kept unless the corresponding flag,
// whose own default is 0, is set to a positive duration.
func Default() *Config {
	return &Config{
		OpenFileLimit:     4096,
		IdleTimeout:       durationx.Seconds(30),
		OriginDialTimeout: durationx.Seconds(10),
		LogLevel:          "info",
		MetricsListen:     "",
	}
}

// BindFlags declares every injector flag on cmd and binds it into v,
// so Get can resolve the effective value from flag > env > config file
// > default, in that order (the standard viper precedence).
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	f := cmd.Flags()

	f.String("repo", "", "path to the injector's state repository")
	f.StringArray("listen-on-tcp", nil, "TCP bind address (repeatable)")
	f.StringArray("listen-on-tcp-tls", nil, "TCP+TLS bind address (repeatable)")
	f.StringArray("listen-on-utp", nil, "uTP bind address (repeatable)")
	f.StringArray("listen-on-utp-tls", nil, "uTP+TLS bind address (repeatable)")
	f.StringArray("listen-on-i2p", nil, "I2P bind address (repeatable)")
	f.StringArray("listen-on-obfs2", nil, "obfs2 bind address (repeatable)")
	f.StringArray("listen-on-obfs3", nil, "obfs3 bind address (repeatable)")
	f.StringArray("listen-on-obfs4", nil, "obfs4 bind address (repeatable)")
	f.StringArray("listen-on-lampshade", nil, "lampshade bind address (repeatable)")
	f.StringArray("listen-on-bep5", nil, "BEP5 bind address (repeatable)")
	f.StringArray("credentials", nil, "user:pass client credential (repeatable)")
	f.Uint64("open-file-limit", 4096, "requested RLIMIT_NOFILE")
	f.String("cache-private-key", "", "path to the Ed25519 private key used to sign forwarded responses")
	f.String("tls-cert", "", "TLS certificate file for *-tcp-tls listeners")
	f.String("tls-key", "", "TLS key file for *-tcp-tls listeners")
	f.Duration("idle-timeout", 0, "idle connection timeout")
	f.Duration("origin-dial-timeout", 0, "origin dial and TLS handshake timeout")
	f.String("log-level", "info", "error|warn|info|debug")
	f.String("metrics-listen", "", "bind address for the Prometheus /metrics endpoint, empty disables it")

	v.SetEnvPrefix("OUINET_INJECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v.BindPFlags(f)
}

// Resolve unmarshals v into a Config, applies defaults for any unset
// field v didn't cover, and validates the result.
func Resolve(v *viper.Viper) (*Config, error) {
	cfg := Default()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if dur := v.GetDuration("idle-timeout"); dur > 0 {
		cfg.IdleTimeout = durationx.Duration(dur)
	}
	if dur := v.GetDuration("origin-dial-timeout"); dur > 0 {
		cfg.OriginDialTimeout = durationx.Duration(dur)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validatorInstance = validator.New()

func validate(cfg *Config) error {
	if err := validatorInstance.Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !cfg.AnyListener() {
		return fmt.Errorf("config: at least one listen-on-* address is required")
	}
	for _, tls := range [][2]string{{cfg.TLSCertFile, cfg.TLSKeyFile}} {
		if (tls[0] == "") != (tls[1] == "") {
			return fmt.Errorf("config: tls-cert and tls-key must be set together")
		}
	}
	return nil
}
