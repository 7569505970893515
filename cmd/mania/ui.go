package main

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printHeader(format string, args ...any) {
	accent.Printf(format+"\n", args...)
}

func printSuccess(format string, args ...any) {
	success.Printf(format+"\n", args...)
}

func printWarn(format string, args ...any) {
	warn.Printf(format+"\n", args...)
}

func printDanger(format string, args ...any) {
	danger.Printf(format+"\n", args...)
}

func printRow(format string, args ...any) {
	neutral.Printf(format+"\n", args...)
}

func printPlain(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}
