package main

import (
	"geo-tools/pkg/lib"
)

func main() {
	rootCmd.AddCommand(
		parseCmd,
		validateCmd,
		fmtCmd,
		transformCmd,
		checkCmd,
		inspectCmd,
		replCmd,
		newCmd,
		generateCmd,
		serveCmd,
		modelsCmd,
		docsCmd,
		pickCmd,
		configCmd,
		exampleCmd,
		versionCmd,
	)

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		lib.Exit(err)
	}
}
