package main

import (
	"fmt"
	"os"

	"github.com/termviewer/pdftui/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			// Best-effort terminal restore: bubbletea's alt-screen exit
			// sequence never ran if we panicked mid-render.
			fmt.Fprint(os.Stdout, "\x1b[?1049l\x1b[?25h")
			fmt.Fprintln(os.Stderr, "pdftui: fatal:", r)
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
