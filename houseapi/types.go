// Package houseapi defines the JSON wire types of the auction house daemon.
// Every request carries a "type" discriminator; responses echo a matching
// response type plus success, message, and processing time.
package houseapi

import "time"

// Request type discriminators.
const (
	TypeDepositRequest  = "deposit_request"
	TypeBidRequest      = "bid_request"
	TypeFinalizeRequest = "finalize_request"
	TypeStateRequest    = "state_request"
)

// BaseRequest is decoded first to dispatch on the discriminator.
type BaseRequest struct {
	Type string `json:"type"`
}

// DepositRequest credits native value to an account so it can bid.
type DepositRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Account   string `json:"account"`
	Amount    string `json:"amount"`
}

// DepositResponse reports the account's balance after the credit.
type DepositResponse struct {
	Type           string `json:"type"`
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Account        string `json:"account,omitempty"`
	Balance        string `json:"balance,omitempty"`
	ProcessingTime int64  `json:"processing_time_ms"`
}

// BidRequest places a bid on the current (or a freshly opened) round.
type BidRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Bidder    string `json:"bidder"`
	Amount    string `json:"amount"`
}

// BidResponse reports the accepted bid and, when the bid opened a round, the
// deadline and the token id being contested.
type BidResponse struct {
	Type             string     `json:"type"`
	Success          bool       `json:"success"`
	Message          string     `json:"message"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	ContestedTokenID uint64     `json:"contested_token_id,omitempty"`
	ProcessingTime   int64      `json:"processing_time_ms"`
}

// FinalizeRequest settles an expired round. Callable by anyone.
type FinalizeRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// FinalizeResponse reports the settlement outcome. Minted is false when the
// round was abandoned and the winning bid refunded. ReceiptCOSEBase64 carries
// the signed settlement receipt for minted settlements.
type FinalizeResponse struct {
	Type              string `json:"type"`
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	Winner            string `json:"winner,omitempty"`
	TokenID           uint64 `json:"token_id,omitempty"`
	Amount            string `json:"amount,omitempty"`
	Minted            bool   `json:"minted"`
	ReceiptCOSEBase64 string `json:"receipt_cose_base64,omitempty"`
	ProcessingTime    int64  `json:"processing_time_ms"`
}

// StateRequest asks for the resumable state surface of the house.
type StateRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// RoundStateView is the externally visible state of the auction house.
type RoundStateView struct {
	Phase          string     `json:"phase"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	HighBid        string     `json:"high_bid"`
	HighBidder     string     `json:"high_bidder,omitempty"`
	NextTokenID    uint64     `json:"next_token_id"`
	Issued         uint64     `json:"issued"`
	Cap            uint64     `json:"cap"`
	IssuanceOpen   bool       `json:"issuance_open"`
	MetadataFrozen bool       `json:"metadata_frozen"`
	BaseURI        string     `json:"base_uri,omitempty"`
}

// StateResponse carries the state view.
type StateResponse struct {
	Type           string          `json:"type"`
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	State          *RoundStateView `json:"state,omitempty"`
	ProcessingTime int64           `json:"processing_time_ms"`
}
