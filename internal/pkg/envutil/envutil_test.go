package envutil

import (
	"testing"
	"time"
)

func TestDurationAcceptsSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("BRIEFS_TEST_WAIT", "750ms")
	if got := Duration("BRIEFS_TEST_WAIT", time.Second, nil); got != 750*time.Millisecond {
		t.Fatalf("go syntax: want=%s got=%s", 750*time.Millisecond, got)
	}
	t.Setenv("BRIEFS_TEST_WAIT", "3")
	if got := Duration("BRIEFS_TEST_WAIT", time.Second, nil); got != 3*time.Second {
		t.Fatalf("seconds: want=%s got=%s", 3*time.Second, got)
	}
	t.Setenv("BRIEFS_TEST_WAIT", "soon")
	if got := Duration("BRIEFS_TEST_WAIT", time.Second, nil); got != time.Second {
		t.Fatalf("fallback: want=%s got=%s", time.Second, got)
	}
}

func TestBoolAndIntFallbacks(t *testing.T) {
	t.Setenv("BRIEFS_TEST_FLAG", "off")
	if Bool("BRIEFS_TEST_FLAG", true, nil) {
		t.Fatalf("Bool: want=false got=true")
	}
	t.Setenv("BRIEFS_TEST_N", "x")
	if got := Int("BRIEFS_TEST_N", 4, nil); got != 4 {
		t.Fatalf("Int: want=4 got=%d", got)
	}
	if got := String("BRIEFS_TEST_UNSET_KEY", "dflt", nil); got != "dflt" {
		t.Fatalf("String: want=dflt got=%q", got)
	}
}

func TestListAndFloat(t *testing.T) {
	t.Setenv("BRIEFS_TEST_LIST", " a, ,b ")
	got := List("BRIEFS_TEST_LIST", nil, nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: got=%v", got)
	}
	t.Setenv("BRIEFS_TEST_RATIO", "0.25")
	if f := Float("BRIEFS_TEST_RATIO", 1, nil); f != 0.25 {
		t.Fatalf("Float: want=0.25 got=%v", f)
	}
	if s := Secret("BRIEFS_TEST_UNSET_SECRET", "def", nil); s != "def" {
		t.Fatalf("Secret default: got=%q", s)
	}
}
