package rpc

import (
	"net/http"

	"crp/native/governance"
)

type govProposeParams struct {
	Caller      string           `json:"caller"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Threshold   string           `json:"threshold"`
	Mechanism   string           `json:"mechanism"`
	Action      *govActionParams `json:"action,omitempty"`
}

type govActionParams struct {
	Kind       string `json:"kind"`
	Module     string `json:"module,omitempty"`
	ParamKey   string `json:"paramKey,omitempty"`
	ParamValue string `json:"paramValue,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
}

type govIDParams struct {
	Caller     string `json:"caller,omitempty"`
	ProposalID uint64 `json:"proposalId"`
}

type govVoteParams struct {
	Caller     string `json:"caller"`
	ProposalID uint64 `json:"proposalId"`
	Choice     string `json:"choice"`
}

type proposalResult struct {
	ID        uint64 `json:"id"`
	Proposer  string `json:"proposer"`
	Title     string `json:"title"`
	Threshold string `json:"threshold"`
	Mechanism string `json:"mechanism"`
	Status    string `json:"status"`
	Yes       string `json:"yes"`
	No        string `json:"no"`
	Abstain   string `json:"abstain"`
}

func proposalToResult(p *governance.Proposal) proposalResult {
	result := proposalResult{
		ID:        p.ID,
		Proposer:  encodeAddress(p.Proposer),
		Title:     p.Title,
		Mechanism: p.Mechanism.String(),
		Status:    p.Status.String(),
	}
	if p.Threshold != nil {
		result.Threshold = p.Threshold.String()
	}
	if p.YesVotes != nil {
		result.Yes = p.YesVotes.String()
	}
	if p.NoVotes != nil {
		result.No = p.NoVotes.String()
	}
	if p.AbstainVotes != nil {
		result.Abstain = p.AbstainVotes.String()
	}
	return result
}

func (s *Server) buildAction(w http.ResponseWriter, id any, params *govActionParams) (*governance.Action, bool) {
	if params == nil {
		return nil, true
	}
	action := &governance.Action{
		Kind:       governance.ActionKind(params.Kind),
		Module:     params.Module,
		ParamKey:   params.ParamKey,
		ParamValue: []byte(params.ParamValue),
	}
	if params.From != "" {
		from, ok := s.addrParam(w, id, params.From)
		if !ok {
			return nil, false
		}
		action.From = from
	}
	if params.To != "" {
		to, ok := s.addrParam(w, id, params.To)
		if !ok {
			return nil, false
		}
		action.To = to
	}
	return action, true
}

func (s *Server) handleGovPropose(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params govProposeParams
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	threshold, ok := s.amountParam(w, req.ID, params.Threshold)
	if !ok {
		return
	}
	action, ok := s.buildAction(w, req.ID, params.Action)
	if !ok {
		return
	}
	id, err := s.governance.CreateProposal(caller, params.Title, params.Description, threshold, governance.Mechanism(params.Mechanism), action)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"proposalId": id})
}

func (s *Server) handleGovActivate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params govIDParams
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	if err := s.governance.ActivateProposal(caller, params.ProposalID); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": governance.ProposalStatusActive.String()})
}

func (s *Server) handleGovVote(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params govVoteParams
	if !s.decode(w, req, &params) {
		return
	}
	voter, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	vote, err := s.governance.Vote(voter, params.ProposalID, governance.VoteChoice(params.Choice))
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.metrics.ObserveVote(vote.Choice.String())
	writeResult(w, req.ID, map[string]string{
		"choice": vote.Choice.String(),
		"weight": vote.Weight.String(),
	})
}

func (s *Server) handleGovFinalize(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params govIDParams
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	status, err := s.governance.FinalizeProposal(caller, params.ProposalID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": status.String()})
}

func (s *Server) handleGovExecute(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params govIDParams
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	if err := s.governance.ExecuteProposal(caller, params.ProposalID); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": governance.ProposalStatusExecuted.String()})
}

func (s *Server) handleGovProposal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params govIDParams
	if !s.decode(w, req, &params) {
		return
	}
	proposal, err := s.governance.GetProposal(params.ProposalID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, proposalToResult(proposal))
}

func (s *Server) handleGovVotingPower(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		ProposalID uint64 `json:"proposalId"`
		Address    string `json:"address"`
	}
	if !s.decode(w, req, &params) {
		return
	}
	voter, ok := s.addrParam(w, req.ID, params.Address)
	if !ok {
		return
	}
	power, err := s.governance.GetVotingPower(params.ProposalID, voter)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"power": power.String()})
}
