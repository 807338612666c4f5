package cmd

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
)

var (
	sendURL     string
	sendNonce   uint64
	sendTo      string
	sendAmount  uint64
	sendComment string
)

// sendCmd signs and submits a transaction against a node's public mux.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign and submit a transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		acctName, err := rootCmd.Flags().GetString("account")
		if err != nil {
			return err
		}

		path, err := rootCmd.Flags().GetString("account-path")
		if err != nil {
			return err
		}

		return runSend(keyPath(acctName, path))
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendURL, "url", "u", "http://localhost:8080", "URL of the node's public API.")
	sendCmd.Flags().Uint64VarP(&sendNonce, "nonce", "n", 0, "Nonce distinguishing otherwise identical transfers.")
	sendCmd.Flags().StringVarP(&sendTo, "to", "t", "", "Receiver's hex-encoded public key.")
	sendCmd.Flags().Uint64VarP(&sendAmount, "value", "v", 0, "Amount to send.")
	sendCmd.Flags().StringVarP(&sendComment, "comment", "c", "", "Optional comment attached to the transaction.")
}

func runSend(user string) error {
	privateKey, err := crypto.LoadECDSA(user)
	if err != nil {
		return err
	}

	receiverPK, err := signature.HexToPublicKey(sendTo)
	if err != nil {
		return fmt.Errorf("decoding receiver public key: %w", err)
	}

	tx, err := transaction.Create(privateKey.PublicKey, receiverPK, sendAmount, sendNonce, privateKey, sendComment)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	txJSON, err := tx.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", sendURL), "application/json", bytes.NewBufferString(txJSON))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Println("submitted:", resp.Status)

	return nil
}
