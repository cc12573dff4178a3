package rpc

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"dposcore/core/types"
	"dposcore/identity"
	"dposcore/sdk/wallet"
)

type loginParams struct {
	User     string
	Password string
}

func decodeLoginParams(params []json.RawMessage) (loginParams, error) {
	var lp loginParams
	if raw, ok := firstParam(params, 0); ok {
		if err := json.Unmarshal(raw, &lp.User); err != nil {
			return lp, err
		}
	}
	if raw, ok := firstParam(params, 1); ok {
		if err := json.Unmarshal(raw, &lp.Password); err != nil {
			return lp, err
		}
	}
	return lp, nil
}

// handleLogin implements §6's login(user, pass) -> bool, issuing a bearer
// token on success for use by every other method.
func (s *Server) handleLogin(w http.ResponseWriter, req Request) {
	lp, err := decodeLoginParams(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid login params", err.Error())
		return
	}
	if lp.User != s.cfg.Credentials.User || lp.Password != s.cfg.Credentials.Password {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, ErrInvalidCredentials.Error(), nil)
		return
	}
	token, err := s.tokens.issue(lp.User)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to issue token", err.Error())
		return
	}
	writeResult(w, req.ID, LoginResult{Token: token})
}

type transferParams struct {
	Amount  uint64
	Address string
}

func decodeTransferParams(params []json.RawMessage) (transferParams, error) {
	var tp transferParams
	raw, ok := firstParam(params, 0)
	if !ok {
		return tp, ErrMissingParam
	}
	if err := json.Unmarshal(raw, &tp.Amount); err != nil {
		return tp, err
	}
	raw, ok = firstParam(params, 1)
	if !ok {
		return tp, ErrMissingParam
	}
	if err := json.Unmarshal(raw, &tp.Address); err != nil {
		return tp, err
	}
	return tp, nil
}

// handleTransfer implements §6's transfer(amount, address) -> tx_id: it
// picks a vote target and input set via sdk/wallet (C6), spends the
// node's owned outputs, and records the resulting transaction locally so
// get_transaction can answer for it. It does not call
// core.Coordinator.ApplyBlock itself: AdmitTransaction only checks the
// transaction against committed state and does not queue it for inclusion
// in a block.
func (s *Server) handleTransfer(w http.ResponseWriter, req Request) {
	tp, err := decodeTransferParams(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid transfer params", nil)
		return
	}
	recipient, err := identity.Decode(tp.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owned := make([]types.UnspentOutput, 0, len(s.owned))
	for _, o := range s.owned {
		owned = append(owned, o)
	}

	height := s.coord.Height()
	selector := wallet.NewSelector(s.coord.Ledger(), s.coord.Ranking(), s.coord.Observer(), s.walletState)
	target, err := selector.ChooseVoteTarget()
	if err != nil {
		writeError(w, http.StatusConflict, req.ID, codeServerError, err.Error(), nil)
		return
	}

	inputs, total := wallet.SelectInputs(owned, s.walletState, height, s.cfg.BlockInterval, tp.Amount)
	if total < tp.Amount {
		writeError(w, http.StatusConflict, req.ID, codeServerError, "insufficient funds", nil)
		return
	}

	tx := types.Transaction{
		Inputs: inputs,
		Vote:   target,
		Outputs: []types.UnspentOutput{{
			ID:     newOutputID(),
			Owner:  toAddrBytes(recipient),
			Amount: tp.Amount,
			Vote:   target,
			Age:    height,
		}},
	}
	if change := total - tp.Amount; change > 0 {
		changeOutput := types.UnspentOutput{
			ID:     newOutputID(),
			Owner:  toAddrBytes(s.cfg.SelfAddress),
			Amount: change,
			Vote:   target,
			Age:    height,
		}
		tx.Outputs = append(tx.Outputs, changeOutput)
	}

	if err := s.coord.AdmitTransaction(tx, height); err != nil {
		writeError(w, http.StatusConflict, req.ID, codeServerError, err.Error(), nil)
		return
	}

	for _, in := range inputs {
		delete(s.owned, in)
	}
	selfBytes := toAddrBytes(s.cfg.SelfAddress)
	for _, out := range tx.Outputs {
		if out.Owner == selfBytes {
			s.owned[out.ID] = out
		}
	}

	txID := uuidTxID()
	s.txs[txID] = tx
	writeResult(w, req.ID, TransferResult{TxID: txID})
}

// handleGetBalance implements §6's getbalance(asset_type) -> amount. This
// core models exactly one asset (the vote-weighted supply unit), so any
// recognized asset_type returns the node's own owned-output total; spec.md
// has no multi-asset model to dispatch on (§1 scope).
func (s *Server) handleGetBalance(w http.ResponseWriter, req Request) {
	var assetType string
	if raw, ok := firstParam(req.Params, 0); ok {
		_ = json.Unmarshal(raw, &assetType)
	}
	if assetType != "" && !strings.EqualFold(assetType, "dpos") {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, ErrUnknownAsset.Error(), nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var total uint64
	for _, o := range s.owned {
		total += o.Amount
	}
	writeResult(w, req.ID, BalanceResult{Amount: total})
}

// handleGetTransaction implements §6's get_transaction(tx_id) -> signed_tx.
func (s *Server) handleGetTransaction(w http.ResponseWriter, req Request) {
	var txID string
	if raw, ok := firstParam(req.Params, 0); ok {
		_ = json.Unmarshal(raw, &txID)
	}
	s.mu.Lock()
	tx, ok := s.txs[txID]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "unknown transaction", nil)
		return
	}
	writeResult(w, req.ID, TransactionResult{
		Vote:    int64(tx.Vote),
		Fee:     tx.Fee,
		Inputs:  len(tx.Inputs),
		Outputs: len(tx.Outputs),
	})
}

// handleGetBlock implements §6's getblock(height) -> signed_block_header.
func (s *Server) handleGetBlock(w http.ResponseWriter, req Request) {
	var height uint64
	if raw, ok := firstParam(req.Params, 0); ok {
		_ = json.Unmarshal(raw, &height)
	}
	s.mu.Lock()
	rec, ok := s.blocks[height]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "unknown block height", nil)
		return
	}
	b := rec.block
	writeResult(w, req.ID, BlockHeaderResult{
		Height:     b.Height,
		Slot:       b.Slot,
		ProducerID: b.ProducerID,
		Producer:   b.ProducerAddr.String(),
		Timestamp:  b.Timestamp,
		PrevHash:   hex.EncodeToString(b.PrevHash[:]),
		Hash:       hex.EncodeToString(b.Hash[:]),
		Signature:  hex.EncodeToString(b.Signature),
		TxCount:    len(b.Txs),
	})
}

// handleValidateAddress implements §6's validateaddress(address) -> bool.
func (s *Server) handleValidateAddress(w http.ResponseWriter, req Request) {
	var addr string
	if raw, ok := firstParam(req.Params, 0); ok {
		_ = json.Unmarshal(raw, &addr)
	}
	_, err := identity.Decode(addr)
	writeResult(w, req.ID, ValidateAddressResult{Valid: err == nil})
}

type importBitcoinWalletParams struct {
	Path     string
	Password string
}

// handleImportBitcoinWallet implements §6's
// import_bitcoin_wallet(path, pass) -> bool. Actual wallet.dat parsing is
// out of this core's scope (spec.md §1: key management is SDK/operator
// tooling); this handler validates the request shape and reports whether
// it would be accepted, matching the boolean contract.
func (s *Server) handleImportBitcoinWallet(w http.ResponseWriter, req Request) {
	var p importBitcoinWalletParams
	if raw, ok := firstParam(req.Params, 0); ok {
		_ = json.Unmarshal(raw, &p.Path)
	}
	if raw, ok := firstParam(req.Params, 1); ok {
		_ = json.Unmarshal(raw, &p.Password)
	}
	accepted := strings.TrimSpace(p.Path) != ""
	writeResult(w, req.ID, ImportBitcoinWalletResult{Imported: accepted})
}

func toAddrBytes(a identity.Address) [20]byte {
	var out [20]byte
	copy(out[:], a.Bytes())
	return out
}

func uuidTxID() string {
	return uuid.NewString()
}
