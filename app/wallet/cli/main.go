// Command wallet is the cobra-based CLI for generating accounts,
// inspecting them, and submitting or seeding network state against a
// running node.
package main

import "github.com/ridgelinelabs/forkchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
