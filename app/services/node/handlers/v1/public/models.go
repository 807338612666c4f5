package public

// txView is a pending or mined transaction rendered for API responses,
// with sender/receiver public keys resolved to their demo role names.
type txView struct {
	Hash         string `json:"hash"`
	Sender       string `json:"sender"`
	SenderName   string `json:"sender_name"`
	Receiver     string `json:"receiver"`
	ReceiverName string `json:"receiver_name"`
	Amount       uint64 `json:"amount"`
	Nonce        uint64 `json:"nonce"`
	Comment      string `json:"comment"`
}

// genesisView reports the fixed genesis block's identity.
type genesisView struct {
	Hash      string  `json:"hash"`
	Timestamp float64 `json:"timestamp"`
}

// peerView renders one registry entry for API consumers.
type peerView struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Name    string `json:"name"`
	Address string `json:"address"`
	PubKey  string `json:"pub_key"`
}
