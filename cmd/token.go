package main

import (
	"fmt"
	"time"

	"github.com/quresis/go-quresis-server/api/interceptors"
	"github.com/quresis/go-quresis-server/util"
	"github.com/spf13/cobra"
)

var (
	tokenKeyFile string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVarP(&tokenKeyFile, "keyFile", "f", "", "key file created with the keys command")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 2*time.Minute, "token lifetime")
	tokenCmd.MarkFlagRequired("keyFile")
	rootCmd.AddCommand(tokenCmd)
}

// tokenCmd issues a caller JWS for the owner and authority endpoints
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a caller token",
	Long:  "Issue a JWS signed by the owner key, to be sent as Authorization header",
	Run: func(cmd *cobra.Command, args []string) {
		kf, err := loadKeyFile(tokenKeyFile)
		check(err)
		priv, err := util.DecodeEd25519PrivateKey(kf.OwnerPrivateKey)
		check(err)
		token, err := interceptors.GenerateJWSToken(priv, tokenTTL)
		check(err)
		fmt.Println(token)
	},
}
