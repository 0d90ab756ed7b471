package testutil

import "testing"

// Given, When and Then name journey steps as subtests so a failure reads as
// the step that broke.
func Given(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "Given", desc, fn) }

func When(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "When", desc, fn) }

func Then(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "Then", desc, fn) }

// step stops the journey at the first failing step; later steps depend on
// the state earlier ones built.
func step(t *testing.T, kind, desc string, fn func(t *testing.T)) {
	t.Helper()
	if !t.Run(kind+" "+desc, fn) {
		t.FailNow()
	}
}
