package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hive2hive/h2h/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   wrap(versioncmd),
}

func versioncmd() {
	fmt.Println("H2H Client")
	fmt.Println("\tVersion " + build.Version)
	if build.GitRevision != "" {
		fmt.Println("\tGit Revision " + build.GitRevision)
		fmt.Println("\tBuild Time " + build.BuildTime)
	}
}
