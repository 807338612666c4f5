package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
)

// accountCmd prints the public key for the named account.
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the public key for the selected account",
	RunE: func(cmd *cobra.Command, args []string) error {
		acctName, err := rootCmd.Flags().GetString("account")
		if err != nil {
			return err
		}

		path, err := rootCmd.Flags().GetString("account-path")
		if err != nil {
			return err
		}

		return runAccount(keyPath(acctName, path))
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func runAccount(user string) error {
	privateKey, err := crypto.LoadECDSA(user)
	if err != nil {
		return err
	}

	fmt.Println(signature.PublicKeyToHex(privateKey.PublicKey))

	return nil
}
