package cmd

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

// generateCmd represents the generate command.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Args:  cobra.ExactArgs(1),
	Short: "Generate a new key pair under the given account name",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := rootCmd.Flags().GetString("account-path")
		if err != nil {
			return err
		}

		dest := keyPath(args[0], path)

		return runKeyGen(dest)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runKeyGen(dest string) error {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	return crypto.SaveECDSA(dest, privateKey)
}
