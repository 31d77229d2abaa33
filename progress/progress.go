/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package progress

import (
	"context"

	"github.com/chainguard-dev/clog"
)

// Reporter receives progress messages for one fix request.
type Reporter interface {
	// Report delivers a single progress message. Errors are advisory; the
	// engine never aborts on a failed delivery.
	Report(ctx context.Context, message string) error
}

// Func adapts a function to the Reporter interface.
type Func func(ctx context.Context, message string) error

// Report implements Reporter.
func (f Func) Report(ctx context.Context, message string) error {
	return f(ctx, message)
}

// Discard is a Reporter that drops every message.
var Discard Reporter = Func(func(context.Context, string) error { return nil })

// Notify logs the message and forwards it to the reporter, swallowing any
// delivery error. A nil reporter logs only.
func Notify(ctx context.Context, r Reporter, message string) {
	log := clog.FromContext(ctx)
	log.Infof("Fix progress: %s", message)
	if r == nil {
		return
	}
	if err := r.Report(ctx, message); err != nil {
		log.Warnf("Progress delivery failed: %v", err)
	}
}
