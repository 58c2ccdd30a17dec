// SPDX-License-Identifier: GPL-2.0-or-later

// Package conlog is the engine's console log: a printf sink the
// embedding client can redirect.
package conlog

import "log"

var (
	p func(string, ...interface{}) = log.Printf
)

// SetPrintf redirects console logging, e.g. into the client's chat
// console. The default sink is the standard logger.
func SetPrintf(f func(string, ...interface{})) {
	p = f
}

func Printf(format string, v ...interface{}) {
	p(format, v...)
}
