// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "testing"

func TestAuthEventString(t *testing.T) {
	e := AuthEvent{
		Username:   "deploy",
		RemoteAddr: "10.0.0.7:52514",
		Method:     "publickey",
		Outcome:    OutcomeAccepted,
	}
	if got := e.String(); got != "accepted deploy@10.0.0.7:52514 via publickey" {
		t.Errorf("unexpected AuthEvent.String(): %q", got)
	}
}

func TestBannerStateValues(t *testing.T) {
	if BannerSent == BannerSuppressed || BannerSent == BannerFailed || BannerSuppressed == BannerFailed {
		t.Fatal("banner states must be distinct")
	}
}
