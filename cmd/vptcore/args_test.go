package main

import "testing"

func TestTryParseCommonFlag_HostDeviceMaxIteration(t *testing.T) {
	cf := commonFlags{}
	args := []string{"--host", "host-1", "--device", "dev-1", "--max-iteration", "5"}

	matched, next := tryParseCommonFlag(args, 0, &cf)
	if !matched || next != 1 || cf.host != "host-1" {
		t.Fatalf("unexpected --host parse: matched=%v next=%d cf=%+v", matched, next, cf)
	}
	matched, next = tryParseCommonFlag(args, 2, &cf)
	if !matched || next != 3 || cf.device != "dev-1" {
		t.Fatalf("unexpected --device parse: matched=%v next=%d cf=%+v", matched, next, cf)
	}
	matched, next = tryParseCommonFlag(args, 4, &cf)
	if !matched || next != 5 || cf.maxIteration != 5 {
		t.Fatalf("unexpected --max-iteration parse: matched=%v next=%d cf=%+v", matched, next, cf)
	}
}

func TestTryParseCommonFlag_UnknownFlagNotMatched(t *testing.T) {
	cf := commonFlags{}
	matched, next := tryParseCommonFlag([]string{"--node", "Settings"}, 0, &cf)
	if matched || next != 0 {
		t.Fatalf("expected --node to be left unmatched, got matched=%v next=%d", matched, next)
	}
}

func TestIsPositional(t *testing.T) {
	cases := map[string]bool{
		"":              false,
		"--host":        false,
		"-v":            false,
		"my_interface":  true,
		"AndroidMobile": true,
	}
	for arg, want := range cases {
		if got := isPositional(arg); got != want {
			t.Fatalf("isPositional(%q) = %v, want %v", arg, got, want)
		}
	}
}
