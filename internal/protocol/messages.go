package protocol

// Status broadcast payload pushed to websocket observers. Strictly read-only
// data derived from registry and actor snapshots; best-effort delivery.

const TypeStatus = "STATUS"

type StatusMsg struct {
	Type    string      `json:"type"`
	Players []PlayerPos `json:"players"`
	Shops   []ShopInfo  `json:"shops"`
}

type PlayerPos struct {
	Name  string `json:"name"`
	World string `json:"world"`
	X     int    `json:"x"`
	Z     int    `json:"z"`
}

type ShopInfo struct {
	ID        string    `json:"id"`
	World     string    `json:"world"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Z         int       `json:"z"`
	OwnerName string    `json:"ownerName"`
	Offered   ItemStack `json:"offered"`
	Asked     ItemStack `json:"asked"`
}

type ItemStack struct {
	Kind   string `json:"kind"`
	Amount int    `json:"amount"`
}
