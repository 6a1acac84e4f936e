package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cloudx-io/openmint/core"
	"github.com/cloudx-io/openmint/houseapi"
	"github.com/cloudx-io/openmint/receipt"
)

// handleRequest decodes the envelope and dispatches on its type. The return
// value is the response to serialize.
func (s *Server) handleRequest(data []byte) any {
	var base houseapi.BaseRequest
	if err := json.Unmarshal(data, &base); err != nil {
		log.Printf("ERROR: Failed to decode base request: %v", err)
		return houseapi.StateResponse{
			Type:    "error_response",
			Success: false,
			Message: fmt.Sprintf("Invalid request: %v", err),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch base.Type {
	case houseapi.TypeDepositRequest:
		return s.handleDeposit(data)
	case houseapi.TypeBidRequest:
		return s.handleBid(data)
	case houseapi.TypeFinalizeRequest:
		return s.handleFinalize(data)
	case houseapi.TypeStateRequest:
		return s.handleState(data)
	default:
		return houseapi.StateResponse{
			Type:    "error_response",
			Success: false,
			Message: fmt.Sprintf("Unknown request type %q", base.Type),
		}
	}
}

func requestID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Server) handleDeposit(data []byte) houseapi.DepositResponse {
	startTime := time.Now()
	fail := func(msg string) houseapi.DepositResponse {
		return houseapi.DepositResponse{
			Type:           "deposit_response",
			Success:        false,
			Message:        msg,
			ProcessingTime: time.Since(startTime).Milliseconds(),
		}
	}

	var req houseapi.DepositRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fail(fmt.Sprintf("Invalid deposit request: %v", err))
	}
	if req.Account == "" {
		return fail("Deposit requires an account")
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil || !amount.IsPositive() {
		return fail(fmt.Sprintf("Invalid deposit amount %q", req.Amount))
	}

	s.ledger.Credit(req.Account, amount)
	log.Printf("INFO: [%s] Deposited %s to %s", requestID(req.RequestID), amount.String(), req.Account)

	return houseapi.DepositResponse{
		Type:           "deposit_response",
		Success:        true,
		Message:        fmt.Sprintf("Credited %s", amount.String()),
		Account:        req.Account,
		Balance:        s.ledger.Balance(req.Account).String(),
		ProcessingTime: time.Since(startTime).Milliseconds(),
	}
}

func (s *Server) handleBid(data []byte) houseapi.BidResponse {
	startTime := time.Now()
	fail := func(msg string) houseapi.BidResponse {
		return houseapi.BidResponse{
			Type:           "bid_response",
			Success:        false,
			Message:        msg,
			ProcessingTime: time.Since(startTime).Milliseconds(),
		}
	}

	var req houseapi.BidRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fail(fmt.Sprintf("Invalid bid request: %v", err))
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return fail(fmt.Sprintf("Invalid bid amount %q", req.Amount))
	}

	reqID := requestID(req.RequestID)
	log.Printf("INFO: [%s] Bid of %s from %s", reqID, amount.String(), req.Bidder)

	if err := s.engine.Bid(req.Bidder, amount); err != nil {
		log.Printf("INFO: [%s] Bid rejected: %v", reqID, err)
		return fail(fmt.Sprintf("Bid rejected: %v", err))
	}

	deadline := s.engine.Deadline()
	return houseapi.BidResponse{
		Type:             "bid_response",
		Success:          true,
		Message:          fmt.Sprintf("Bid of %s accepted", amount.String()),
		Deadline:         &deadline,
		ContestedTokenID: s.engine.NextTokenID(),
		ProcessingTime:   time.Since(startTime).Milliseconds(),
	}
}

func (s *Server) handleFinalize(data []byte) houseapi.FinalizeResponse {
	startTime := time.Now()
	fail := func(msg string) houseapi.FinalizeResponse {
		return houseapi.FinalizeResponse{
			Type:           "finalize_response",
			Success:        false,
			Message:        msg,
			ProcessingTime: time.Since(startTime).Milliseconds(),
		}
	}

	var req houseapi.FinalizeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fail(fmt.Sprintf("Invalid finalize request: %v", err))
	}
	reqID := requestID(req.RequestID)

	settlement, err := s.engine.Finalize()
	if err != nil {
		log.Printf("INFO: [%s] Finalize rejected: %v", reqID, err)
		return fail(fmt.Sprintf("Finalize rejected: %v", err))
	}

	resp := houseapi.FinalizeResponse{
		Type:           "finalize_response",
		Success:        true,
		Winner:         settlement.Winner,
		TokenID:        settlement.TokenID,
		Amount:         settlement.Amount.String(),
		Minted:         settlement.Minted,
		ProcessingTime: time.Since(startTime).Milliseconds(),
	}
	if !settlement.Minted {
		resp.Message = fmt.Sprintf("Round abandoned, %s refunded to %s", settlement.Amount.String(), settlement.Winner)
		return resp
	}

	resp.Message = fmt.Sprintf("Token %d minted to %s", settlement.TokenID, settlement.Winner)
	coseBytes, err := s.signer.Sign(receipt.SettlementReceipt{
		TokenID:         settlement.TokenID,
		Winner:          settlement.Winner,
		Amount:          settlement.Amount.String(),
		ProceedsAccount: s.cfg.ProceedsAccount,
		SettledAt:       settlement.SettledAt,
	})
	if err != nil {
		// The settlement itself succeeded; the receipt is advisory.
		log.Printf("ERROR: [%s] Failed to sign settlement receipt: %v", reqID, err)
	} else {
		resp.ReceiptCOSEBase64 = base64.StdEncoding.EncodeToString(coseBytes)
	}
	log.Printf("INFO: [%s] Settled token %d to %s for %s", reqID, settlement.TokenID, settlement.Winner, settlement.Amount.String())
	return resp
}

func (s *Server) handleState(data []byte) houseapi.StateResponse {
	startTime := time.Now()
	fail := func(msg string) houseapi.StateResponse {
		return houseapi.StateResponse{
			Type:           "state_response",
			Success:        false,
			Message:        msg,
			ProcessingTime: time.Since(startTime).Milliseconds(),
		}
	}

	var req houseapi.StateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fail(fmt.Sprintf("Invalid state request: %v", err))
	}

	snapshot, err := s.engine.Snapshot()
	if err != nil {
		return fail(fmt.Sprintf("State unavailable: %v", err))
	}

	view := houseapi.RoundStateView{
		Phase:          string(s.engine.State()),
		HighBid:        snapshot.HighBid,
		HighBidder:     snapshot.HighBidder,
		NextTokenID:    snapshot.Issued + 1,
		Issued:         snapshot.Issued,
		Cap:            snapshot.Cap,
		IssuanceOpen:   snapshot.IssuanceOpen,
		MetadataFrozen: snapshot.MetadataFrozen,
		BaseURI:        snapshot.BaseURI,
	}
	if !snapshot.Deadline.IsZero() {
		deadline := snapshot.Deadline
		view.Deadline = &deadline
	}

	return houseapi.StateResponse{
		Type:           "state_response",
		Success:        true,
		Message:        "ok",
		State:          &view,
		ProcessingTime: time.Since(startTime).Milliseconds(),
	}
}
