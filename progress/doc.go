/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package progress delivers short human-readable status lines from the fix
// engine to an interested consumer (a chat thread, a job log, a UI).
//
// Delivery is best effort: a failing sink must never fail the fix request,
// so the Notify helper logs and swallows sink errors.
package progress
