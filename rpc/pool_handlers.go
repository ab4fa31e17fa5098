package rpc

import (
	"net/http"

	"crp/native/pool"
)

type poolCreateParams struct {
	Caller          string `json:"caller"`
	Borrower        string `json:"borrower"`
	Target          string `json:"target"`
	InterestRateBps uint64 `json:"interestRateBps"`
	DurationSeconds uint64 `json:"durationSeconds"`
}

type poolAmountParams struct {
	Caller string `json:"caller"`
	PoolID uint64 `json:"poolId"`
	Amount string `json:"amount"`
}

type poolIDParams struct {
	Caller string `json:"caller,omitempty"`
	PoolID uint64 `json:"poolId"`
}

type poolResult struct {
	ID              uint64 `json:"id"`
	Borrower        string `json:"borrower"`
	Target          string `json:"target"`
	CurrentTotal    string `json:"currentTotal"`
	InterestRateBps uint64 `json:"interestRateBps"`
	DurationSeconds uint64 `json:"durationSeconds"`
	Status          string `json:"status"`
	Repayment       string `json:"repayment,omitempty"`
	VaultBalance    string `json:"vaultBalance,omitempty"`
}

func poolToResult(p *pool.Pool) poolResult {
	result := poolResult{
		ID:              p.ID,
		Borrower:        encodeAddress(p.Borrower),
		InterestRateBps: p.InterestRateBps,
		DurationSeconds: p.DurationSeconds,
		Status:          p.Status.String(),
	}
	if p.TargetAmount != nil {
		result.Target = p.TargetAmount.String()
	}
	if p.CurrentTotal != nil {
		result.CurrentTotal = p.CurrentTotal.String()
	}
	if p.Repayment != nil {
		result.Repayment = p.Repayment.String()
	}
	return result
}

func (s *Server) handlePoolCreate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params poolCreateParams
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	borrower, ok := s.addrParam(w, req.ID, params.Borrower)
	if !ok {
		return
	}
	target, ok := s.amountParam(w, req.ID, params.Target)
	if !ok {
		return
	}
	id, err := s.pools.CreatePool(caller, borrower, target, params.InterestRateBps, params.DurationSeconds)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.metrics.ObservePoolCreated()
	writeResult(w, req.ID, map[string]uint64{"poolId": id})
}

func (s *Server) handlePoolJoin(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params poolAmountParams
	if !s.decode(w, req, &params) {
		return
	}
	investor, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	amount, ok := s.amountParam(w, req.ID, params.Amount)
	if !ok {
		return
	}
	if err := s.pools.JoinPool(investor, params.PoolID, amount); err != nil {
		s.metrics.ObserveContribution("error")
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.metrics.ObserveContribution("ok")
	p, err := s.pools.GetPool(params.PoolID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, poolToResult(p))
}

func (s *Server) handlePoolFinalizeFunding(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params poolIDParams
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	if err := s.pools.FinalizeFunding(caller, params.PoolID); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	p, err := s.pools.GetPool(params.PoolID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, poolToResult(p))
}

func (s *Server) handlePoolRepay(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params poolIDParams
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	repayment, err := s.pools.RepayLoan(caller, params.PoolID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"repayment": repayment.String()})
}

func (s *Server) handlePoolClaim(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params poolIDParams
	if !s.decode(w, req, &params) {
		return
	}
	investor, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	amount, err := s.pools.ClaimRepayment(investor, params.PoolID)
	if err != nil {
		s.metrics.ObserveClaim("error")
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.metrics.ObserveClaim("ok")
	writeResult(w, req.ID, map[string]string{"amount": amount.String()})
}

type poolBulkClaimParams struct {
	PoolID    uint64   `json:"poolId"`
	Investors []string `json:"investors"`
}

type poolClaimOutcome struct {
	Investor string `json:"investor"`
	Amount   string `json:"amount,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handlePoolBulkClaim(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params poolBulkClaimParams
	if !s.decode(w, req, &params) {
		return
	}
	investors := make([][20]byte, 0, len(params.Investors))
	for _, raw := range params.Investors {
		investor, ok := s.addrParam(w, req.ID, raw)
		if !ok {
			return
		}
		investors = append(investors, investor)
	}
	results := s.pools.BulkClaimRepayments(params.PoolID, investors)
	outcomes := make([]poolClaimOutcome, len(results))
	for i, result := range results {
		outcomes[i] = poolClaimOutcome{Investor: encodeAddress(result.Investor)}
		if result.Err != nil {
			outcomes[i].Error = result.Err.Error()
			s.metrics.ObserveClaim("error")
			continue
		}
		if result.Amount != nil {
			outcomes[i].Amount = result.Amount.String()
		}
		s.metrics.ObserveClaim("ok")
	}
	writeResult(w, req.ID, outcomes)
}

func (s *Server) handlePoolMarkDefaulted(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params poolIDParams
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	if err := s.pools.MarkDefaulted(caller, params.PoolID); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": pool.StatusDefaulted.String()})
}

func (s *Server) handlePoolGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params poolIDParams
	if !s.decode(w, req, &params) {
		return
	}
	p, err := s.pools.GetPool(params.PoolID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	result := poolToResult(p)
	if vault, err := s.pools.VaultBalance(params.PoolID); err == nil {
		result.VaultBalance = vault.String()
	}
	writeResult(w, req.ID, result)
}

type portfolioEntryResult struct {
	PoolID       uint64 `json:"poolId"`
	Status       string `json:"status"`
	Contribution string `json:"contribution"`
	Shares       string `json:"shares"`
	Claimed      bool   `json:"claimed"`
}

func (s *Server) handlePoolPortfolio(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Address string `json:"address"`
	}
	if !s.decode(w, req, &params) {
		return
	}
	investor, ok := s.addrParam(w, req.ID, params.Address)
	if !ok {
		return
	}
	entries, err := s.pools.GetInvestorPortfolio(investor)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	results := make([]portfolioEntryResult, len(entries))
	for i, entry := range entries {
		results[i] = portfolioEntryResult{
			PoolID:  entry.PoolID,
			Status:  entry.Status.String(),
			Claimed: entry.Claimed,
		}
		if entry.Contribution != nil {
			results[i].Contribution = entry.Contribution.String()
		}
		if entry.Shares != nil {
			results[i].Shares = entry.Shares.String()
		}
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handlePoolLoans(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Address string `json:"address"`
	}
	if !s.decode(w, req, &params) {
		return
	}
	borrower, ok := s.addrParam(w, req.ID, params.Address)
	if !ok {
		return
	}
	loans, err := s.pools.GetBorrowerLoans(borrower)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	results := make([]poolResult, len(loans))
	for i, loan := range loans {
		results[i] = poolToResult(loan)
	}
	writeResult(w, req.ID, results)
}
