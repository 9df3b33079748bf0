package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Paul2341268/word-relay/relay"
)

func TestPlayLocal(t *testing.T) {
	input := strings.Join([]string{
		"3",
		"alpha", "bee", "cam",
		"apple", // alpha
		"egg",   // bee
		"apple", // cam repeats
		"grape", // alpha
		"eel",   // bee
		"lemon", // alpha
		"zebra", // bee breaks the chain
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := playLocal(&Config{}, strings.NewReader(input), &out); err != nil {
		t.Fatalf("playLocal: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"How many participants? ",
		`[2] bee, continue from "apple": `,
		"cam is out: duplicate word",
		"bee is out: rule violation",
		"alpha wins!",
		"  alpha: lemon",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPlayLocalPlaceholdersAndEmptyInput(t *testing.T) {
	input := "\n\n cat\n\nturtle\n"

	var out bytes.Buffer
	if err := playLocal(&Config{players: 2}, strings.NewReader(input), &out); err != nil {
		t.Fatalf("playLocal: %v", err)
	}

	got := out.String()
	if strings.Contains(got, "How many participants?") {
		t.Error("prompted for participant count despite --players")
	}
	if n := strings.Count(got, `[2] Participant 2, continue from "cat": `); n != 2 {
		t.Errorf("Participant 2 prompted %d times, want 2:\n%s", n, got)
	}
	if !strings.Contains(got, "Accepted: turtle") {
		t.Errorf("turtle not accepted:\n%s", got)
	}
	if strings.Contains(got, "wins!") {
		t.Errorf("game ended without a winner:\n%s", got)
	}
}

func TestPlayLocalInvalidCount(t *testing.T) {
	for _, input := range []string{"zero\n", "0\n", "-3\n"} {
		err := playLocal(&Config{}, strings.NewReader(input), new(bytes.Buffer))
		if !errors.Is(err, relay.ErrSetup) {
			t.Errorf("input %q: error = %v, want %v", input, err, relay.ErrSetup)
		}
	}
}

func TestPlayCommand(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)

	var out bytes.Buffer
	cmd.SetArgs([]string{"play", "--players", "2"})
	cmd.SetIn(strings.NewReader("x\ny\ncat\ndog\n"))
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "x wins!") {
		t.Errorf("output = %q, want x to win", out.String())
	}
}

func TestPlayCommandVerbose(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)

	cmd.SetArgs([]string{"play", "-v", "--players", "2"})
	cmd.SetIn(strings.NewReader("x\ny\ncat\ndog\n"))
	cmd.SetOut(new(bytes.Buffer))

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !cfg.verbose {
		t.Error("--verbose not applied to play")
	}
}
