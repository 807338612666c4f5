package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/peer"
)

var (
	peerNodeURL string
	peerRole    string
	peerAddress string
	peerPubKey  string
)

// peerCmd registers a peer against a node's private mux. It is how the
// demo topology is seeded: pointing the cooperating bad-SPV client and
// the targeted vendor at the attacker's peer directory before mining
// starts, since the wire transport carries no discovery protocol of
// its own.
var peerCmd = &cobra.Command{
	Use:   "peer",
	Short: "Register a peer with a node's private API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeerRegister()
	},
}

func init() {
	rootCmd.AddCommand(peerCmd)
	peerCmd.Flags().StringVarP(&peerNodeURL, "node", "u", "http://localhost:9080", "URL of the node's private API to register against.")
	peerCmd.Flags().StringVarP(&peerRole, "role", "r", string(peer.RoleSPVClient), "Role of the peer being registered.")
	peerCmd.Flags().StringVarP(&peerAddress, "address", "d", "", "Network address of the peer being registered.")
	peerCmd.Flags().StringVarP(&peerPubKey, "pubkey", "k", "", "Hex-encoded public key of the peer being registered.")
}

func runPeerRegister() error {
	p := peer.New(peer.Role(peerRole), peerAddress, peerPubKey)

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal peer: %w", err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/node/peers/register", peerNodeURL), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Println("registered:", resp.Status)

	return nil
}
