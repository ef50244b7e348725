package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/quresis/go-quresis-server/pqc"
	"github.com/quresis/go-quresis-server/util"
	"github.com/spf13/cobra"
)

// keyFile holds the owner's classical key and PQC key pair
type keyFile struct {
	Type            string `json:"type"`
	OwnerKey        string `json:"ownerKey"`        // base58 Ed25519 public key
	OwnerPrivateKey string `json:"ownerPrivateKey"` // base64 Ed25519 private key
	PQCLevel        int    `json:"pqcLevel"`
	PQCPublicKey    string `json:"pqcPublicKey"`  // base64
	PQCPrivateKey   string `json:"pqcPrivateKey"` // base64
	Created         int64  `json:"created"`
}

var outputFile string
var pqcLevel int

func init() {
	keysCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default is stdout)")
	keysCmd.Flags().IntVarP(&pqcLevel, "level", "l", 44, "ML-DSA level (44 or 65)")
	rootCmd.AddCommand(keysCmd)
}

func loadKeyFile(path string) (*keyFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf keyFile
	if err := json.Unmarshal(raw, &kf); err != nil {
		return nil, err
	}
	return &kf, nil
}

// keysCmd generates an owner Ed25519 key and an ML-DSA key pair to register
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate owner and ML-DSA keys",
	Long:  "Generate an Ed25519 owner key and an ML-DSA-44 or ML-DSA-65 key pair for a quantum identity",
	Run: func(cmd *cobra.Command, args []string) {
		scheme, err := pqc.SchemeByLevel(pqcLevel)
		check(err)
		owner, ownerPrivate, err := util.GenerateEd25519KeyPair()
		check(err)
		pk, sk, err := scheme.GenerateKey()
		check(err)
		pkBytes, err := pk.MarshalBinary()
		check(err)
		skBytes, err := sk.MarshalBinary()
		check(err)

		kf := &keyFile{
			Type:            "quresis_keys",
			OwnerKey:        owner,
			OwnerPrivateKey: ownerPrivate,
			PQCLevel:        pqcLevel,
			PQCPublicKey:    base64.StdEncoding.EncodeToString(pkBytes),
			PQCPrivateKey:   base64.StdEncoding.EncodeToString(skBytes),
			Created:         time.Now().UnixMilli(),
		}
		fileBytes, err := json.MarshalIndent(kf, "", "  ")
		check(err)
		if outputFile != "" {
			// fail if file already exists
			if _, err := os.Stat(outputFile); !errors.Is(err, os.ErrNotExist) {
				fmt.Printf("File already exists: %s\n", outputFile)
				os.Exit(1)
			}
			err = os.WriteFile(outputFile, fileBytes, 0600)
			check(err)
			fmt.Printf("Output file: %s\n", outputFile)
		} else {
			fmt.Printf("\n%s\n", string(fileBytes))
		}
	},
}
