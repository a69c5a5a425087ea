package events

// TokensGeneratedEvent is published to token.generated once per batch.
type TokensGeneratedEvent struct {
	CompanyName string  `json:"company_name"`
	IssuerID    string  `json:"issuer_id"`
	TokenIDs    []int64 `json:"token_ids"`
	Challenge   string  `json:"challenge,omitempty"`
	Price       string  `json:"price,omitempty"`
	GeneratedAt string  `json:"generated_at"`
}

// TokenClaimedEvent is published to token.claimed when a runner accepts a challenge.
type TokenClaimedEvent struct {
	TokenID     int64  `json:"token_id"`
	CompanyName string `json:"company_name"`
	ClaimantID  string `json:"claimant_id"`
	ClaimedAt   string `json:"claimed_at"`
}

// TokenRedeemedEvent is published to token.redeemed.
type TokenRedeemedEvent struct {
	TokenID     int64  `json:"token_id"`
	CompanyName string `json:"company_name"`
	RedeemedBy  string `json:"redeemed_by"`
	PriorStatus int    `json:"prior_status"`
	RedeemedAt  string `json:"redeemed_at"`
}

// FeedMessage is what feed subscribers receive over the websocket.
type FeedMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
