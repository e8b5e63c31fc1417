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

package config

import (
	"github.com/mhqz/ouinet-injector/ierr"
	"github.com/mhqz/ouinet-injector/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch re-resolves the configuration whenever the backing file changes
// and hands the new Config to onChange. Resolve errors (a bad edit) are
// logged and otherwise ignored: the previous, still-valid Config stays
// in effect until a subsequent edit parses and validates cleanly.
func Watch(v *viper.Viper, log *logger.Logger, onChange func(*Config)) {
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := Resolve(v)
		if err != nil {
			log.Entry(logger.WarnLevel, "configuration reload rejected").
				ErrorAdd(true, ierr.ErrTransport.Error(err)).
				Log()
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
