package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trunkctl/tetrabase/internal/cmd"
	"github.com/trunkctl/tetrabase/internal/config"
	"github.com/trunkctl/tetrabase/internal/sdk"
	"github.com/USA-RedDragon/configulator"
)

func main() {
	c := configulator.New[config.Config]()
	rootCmd := cmd.NewCommand(sdk.Version, sdk.GitCommit)
	rootCmd.SetContext(c.Context(context.Background()))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
