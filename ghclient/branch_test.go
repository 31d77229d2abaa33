/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import "testing"

func TestBranchName(t *testing.T) {
	for _, tc := range []struct {
		name  string
		id    string
		title string
		want  string
	}{{
		name:  "simple",
		id:    "abc123",
		title: "Fix login crash",
		want:  "fixbot/bug-abc123-fix-login-crash",
	}, {
		name:  "special characters collapse",
		id:    "42",
		title: "NPE!!  in   (parser)",
		want:  "fixbot/bug-42-npe-in-parser",
	}, {
		name:  "leading and trailing junk",
		id:    "7",
		title: "---Weird title!",
		want:  "fixbot/bug-7-weird-title",
	}, {
		name:  "long title capped at 30",
		id:    "9",
		title: "This is a very long bug title that keeps going and going",
		want:  "fixbot/bug-9-this-is-a-very-long-bug-title",
	}, {
		name:  "cap does not leave trailing hyphen",
		id:    "9",
		title: "abcdefghij abcdefghij abcdefg x",
		want:  "fixbot/bug-9-abcdefghij-abcdefghij-abcdefg",
	}, {
		name:  "unicode stripped",
		id:    "u1",
		title: "Çrash ünder löad",
		want:  "fixbot/bug-u1-rash-nder-l-ad",
	}} {
		t.Run(tc.name, func(t *testing.T) {
			if got := BranchName(tc.id, tc.title); got != tc.want {
				t.Errorf("BranchName(%q, %q) = %q, want %q", tc.id, tc.title, got, tc.want)
			}
		})
	}
}
