package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/example/protolink/testrunner"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
)

func checkIfTerminal(w io.Writer) bool {
	switch v := w.(type) {
	case *os.File:
		return isatty.IsTerminal(v.Fd()) || isatty.IsCygwinTerminal(v.Fd())
	default:
		return false
	}
}

// colorEnabled honours NO_COLOR and the TERM safeguards on top of the tty check.
func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	switch os.Getenv("TERM") {
	case "dumb", "unknown":
		return false
	}
	return checkIfTerminal(w)
}

func resultTag(r testrunner.Result, colored bool) string {
	if !colored {
		return r.String()
	}
	color := colorReset
	switch r {
	case testrunner.Pass:
		color = colorGreen
	case testrunner.Fail, testrunner.Error:
		color = colorRed
	case testrunner.Skip:
		color = colorYellow
	}
	return color + r.String() + colorReset
}
