package main

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/quresis/go-quresis-server/pqc"
	"github.com/quresis/go-quresis-server/types"
	"github.com/spf13/cobra"
)

var (
	signKeyFile    string
	signMessage    string
	signAsset      string
	signAmount     uint64
	signKeyVersion uint16
	signSequence   uint64
)

func init() {
	signCmd.Flags().StringVarP(&signKeyFile, "keyFile", "f", "", "key file created with the keys command")
	signCmd.Flags().StringVarP(&signMessage, "message", "m", "", "message to sign")
	signCmd.Flags().StringVarP(&signAsset, "asset", "a", "", "asset of the transfer to authorize (base58)")
	signCmd.Flags().Uint64Var(&signAmount, "amount", 0, "amount of the transfer to authorize")
	signCmd.Flags().Uint16Var(&signKeyVersion, "keyVersion", 1, "current key version of the identity")
	signCmd.Flags().Uint64Var(&signSequence, "sequence", 0, "current sequence of the identity")
	signCmd.MarkFlagRequired("keyFile")
	rootCmd.AddCommand(signCmd)
}

// signCmd signs a message or a transfer authorization with the ML-DSA key
var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign with the ML-DSA key",
	Long:  "Sign a message, or with --asset the transfer authorization for a verified transfer check",
	Run: func(cmd *cobra.Command, args []string) {
		kf, err := loadKeyFile(signKeyFile)
		check(err)
		scheme, err := pqc.SchemeByLevel(kf.PQCLevel)
		check(err)
		skBytes, err := base64.StdEncoding.DecodeString(kf.PQCPrivateKey)
		check(err)
		sk, err := scheme.UnmarshalBinaryPrivateKey(skBytes)
		check(err)

		var message []byte
		switch {
		case signAsset != "":
			asset, err := types.ParsePublicKey(signAsset)
			check(err)
			sender, err := types.ParsePublicKey(kf.OwnerKey)
			check(err)
			message = types.TransferAuthorizationMessage(asset, sender, signAmount, signKeyVersion, signSequence)
		case signMessage != "":
			message = []byte(signMessage)
		default:
			check(errors.New("either --message or --asset is required"))
		}

		signature := scheme.Sign(sk, message, nil)
		fmt.Printf("message:   %s\n", base64.StdEncoding.EncodeToString(message))
		fmt.Printf("signature: %s\n", base64.StdEncoding.EncodeToString(signature))
	},
}
