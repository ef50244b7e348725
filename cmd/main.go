package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func check(e error) {
	if e != nil {
		fmt.Printf("%v\n", e.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "quresis",
	Short:   "Quresis is a post-quantum identity registry and transfer policy engine",
	Long:    `Quresis binds ML-DSA public keys to classical owner keys and gates high value transfers on post-quantum signatures. This tool generates keys, signs authorizations and issues caller tokens.`,
	Version: "0.1.0",
	Run: func(cmd *cobra.Command, args []string) {
		// empty
	},
}

func main() {
	Execute()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
