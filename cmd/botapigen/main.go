package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/botapigen/internal/cli"
	"github.com/mark3labs/botapigen/internal/logging"
)

func main() {
	defer logging.Sync()
	if err := cli.Execute(); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
