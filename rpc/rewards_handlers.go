package rpc

import (
	"math/big"
	"net/http"

	"crp/native/rewards"
)

type rewardsAmountParams struct {
	Caller string `json:"caller"`
	PoolID uint64 `json:"poolId"`
	Amount string `json:"amount"`
}

type rewardsIDParams struct {
	Caller string `json:"caller,omitempty"`
	PoolID uint64 `json:"poolId"`
}

func (s *Server) handleRewardsCreatePool(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Caller string `json:"caller"`
	}
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	id, err := s.rewards.CreatePool(caller)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"poolId": id})
}

func (s *Server) handleRewardsStake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params rewardsAmountParams
	if !s.decode(w, req, &params) {
		return
	}
	holder, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	amount, ok := s.amountParam(w, req.ID, params.Amount)
	if !ok {
		return
	}
	if err := s.rewards.Stake(holder, params.PoolID, amount); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	staked, err := s.rewards.GetStakedAmount(holder, params.PoolID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"staked": staked.String()})
}

func (s *Server) handleRewardsUnstake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params rewardsAmountParams
	if !s.decode(w, req, &params) {
		return
	}
	holder, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	amount, ok := s.amountParam(w, req.ID, params.Amount)
	if !ok {
		return
	}
	if err := s.rewards.Unstake(holder, params.PoolID, amount); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	staked, err := s.rewards.GetStakedAmount(holder, params.PoolID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"staked": staked.String()})
}

func (s *Server) handleRewardsDistribute(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params rewardsAmountParams
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	amount, ok := s.amountParam(w, req.ID, params.Amount)
	if !ok {
		return
	}
	if err := s.rewards.DistributeRewards(caller, params.PoolID, amount); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"distributed": amount.String()})
}

func (s *Server) handleRewardsClaim(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params rewardsIDParams
	if !s.decode(w, req, &params) {
		return
	}
	holder, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	amount, err := s.rewards.ClaimRewards(holder, params.PoolID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": amount.String()})
}

func (s *Server) handleRewardsPending(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params rewardsIDParams
	if !s.decode(w, req, &params) {
		return
	}
	holder, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	pending, err := s.rewards.GetPendingRewards(holder, params.PoolID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"pending": pending.String()})
}

func (s *Server) handleRewardsStaked(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params rewardsIDParams
	if !s.decode(w, req, &params) {
		return
	}
	holder, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	staked, err := s.rewards.GetStakedAmount(holder, params.PoolID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"staked": staked.String()})
}

type rewardsBulkParams struct {
	PoolID  uint64   `json:"poolId"`
	Holders []string `json:"holders"`
	Amounts []string `json:"amounts"`
}

type rewardsBulkOutcome struct {
	Holder string `json:"holder"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleRewardsBulkStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleRewardsBulk(w, r, req, s.rewards.BulkStake)
}

func (s *Server) handleRewardsBulkUnstake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleRewardsBulk(w, r, req, s.rewards.BulkUnstake)
}

func (s *Server) handleRewardsBulk(w http.ResponseWriter, _ *http.Request, req *RPCRequest, apply func(uint64, [][20]byte, []*big.Int) []rewards.StakeResult) {
	var params rewardsBulkParams
	if !s.decode(w, req, &params) {
		return
	}
	if len(params.Holders) != len(params.Amounts) {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "holders and amounts length mismatch", nil)
		return
	}
	holders := make([][20]byte, 0, len(params.Holders))
	amounts := make([]*big.Int, 0, len(params.Amounts))
	for i, raw := range params.Holders {
		holder, ok := s.addrParam(w, req.ID, raw)
		if !ok {
			return
		}
		amount, ok := s.amountParam(w, req.ID, params.Amounts[i])
		if !ok {
			return
		}
		holders = append(holders, holder)
		amounts = append(amounts, amount)
	}
	results := apply(params.PoolID, holders, amounts)
	outcomes := make([]rewardsBulkOutcome, len(results))
	for i, result := range results {
		outcomes[i] = rewardsBulkOutcome{Holder: encodeAddress(result.Holder)}
		if result.Err != nil {
			outcomes[i].Error = result.Err.Error()
		}
	}
	writeResult(w, req.ID, outcomes)
}
