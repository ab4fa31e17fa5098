package rpc

import "net/http"

type treasuryAmountParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (s *Server) handleTreasuryDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params treasuryAmountParams
	if !s.decode(w, req, &params) {
		return
	}
	addr, ok := s.addrParam(w, req.ID, params.Address)
	if !ok {
		return
	}
	amount, ok := s.amountParam(w, req.ID, params.Amount)
	if !ok {
		return
	}
	if err := s.treasury.Deposit(addr, amount); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	balance, err := s.treasury.BalanceOf(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"balance": balance.String()})
}

func (s *Server) handleTreasuryWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params treasuryAmountParams
	if !s.decode(w, req, &params) {
		return
	}
	addr, ok := s.addrParam(w, req.ID, params.Address)
	if !ok {
		return
	}
	amount, ok := s.amountParam(w, req.ID, params.Amount)
	if !ok {
		return
	}
	if err := s.treasury.Withdraw(addr, amount); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	balance, err := s.treasury.BalanceOf(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"balance": balance.String()})
}

func (s *Server) handleTreasuryBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Address string `json:"address"`
	}
	if !s.decode(w, req, &params) {
		return
	}
	addr, ok := s.addrParam(w, req.ID, params.Address)
	if !ok {
		return
	}
	balance, err := s.treasury.BalanceOf(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"balance": balance.String()})
}
