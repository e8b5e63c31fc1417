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

package config_test

import (
	"testing"

	"github.com/mhqz/ouinet-injector/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "config suite")
}

func newBoundViper() *viper.Viper {
	v := viper.New()
	cmd := &cobra.Command{Use: "injector"}
	Expect(config.BindFlags(cmd, v)).To(Succeed())
	return v
}

var _ = Describe("AnyListener", func() {
	It("is false with no listener addresses set", func() {
		Expect((&config.Config{}).AnyListener()).To(BeFalse())
	})

	It("is true once any single transport has a bind address", func() {
		c := &config.Config{ListenTCP: []string{"0.0.0.0:7070"}}
		Expect(c.AnyListener()).To(BeTrue())
	})
})

var _ = Describe("Resolve", func() {
	It("rejects a configuration with no listener and no repo", func() {
		v := newBoundViper()
		_, err := config.Resolve(v)
		Expect(err).To(HaveOccurred())
	})

	It("accepts a minimal valid configuration", func() {
		v := newBoundViper()
		v.Set("repo", "/tmp/injector-repo")
		v.Set("listen-on-tcp", []string{"127.0.0.1:7070"})
		v.Set("cache-private-key", "/tmp/injector-repo/ed25519.key")

		cfg, err := config.Resolve(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Repo).To(Equal("/tmp/injector-repo"))
		Expect(cfg.AnyListener()).To(BeTrue())
		Expect(cfg.LogLevel).To(Equal("info"))
	})

	It("rejects an invalid log level", func() {
		v := newBoundViper()
		v.Set("repo", "/tmp/injector-repo")
		v.Set("listen-on-tcp", []string{"127.0.0.1:7070"})
		v.Set("cache-private-key", "/tmp/injector-repo/ed25519.key")
		v.Set("log-level", "verbose")

		_, err := config.Resolve(v)
		Expect(err).To(HaveOccurred())
	})

	It("rejects tls-cert without a matching tls-key", func() {
		v := newBoundViper()
		v.Set("repo", "/tmp/injector-repo")
		v.Set("listen-on-tcp-tls", []string{"127.0.0.1:7443"})
		v.Set("cache-private-key", "/tmp/injector-repo/ed25519.key")
		v.Set("tls-cert", "/tmp/cert.pem")

		_, err := config.Resolve(v)
		Expect(err).To(HaveOccurred())
	})

	It("honors an explicit idle-timeout override", func() {
		v := newBoundViper()
		v.Set("repo", "/tmp/injector-repo")
		v.Set("listen-on-tcp", []string{"127.0.0.1:7070"})
		v.Set("cache-private-key", "/tmp/injector-repo/ed25519.key")
		v.Set("idle-timeout", "45s")

		cfg, err := config.Resolve(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.IdleTimeout.String()).To(Equal("45s"))
	})
})
