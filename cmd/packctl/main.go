package main

import (
	"boardpacks/cmd/packctl/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	cmd.NewTemplateCmd(rootCmd)
	cmd.NewSectionsCmd(rootCmd)
	cmd.NewSweepCmd(rootCmd)
	cmd.NewAuditCmd(rootCmd)

	cmd.Execute(rootCmd)
}
