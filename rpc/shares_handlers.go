package rpc

import "net/http"

func (s *Server) handleSharesGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		PoolID uint64 `json:"poolId"`
		Holder string `json:"holder"`
	}
	if !s.decode(w, req, &params) {
		return
	}
	holder, ok := s.addrParam(w, req.ID, params.Holder)
	if !ok {
		return
	}
	balance, err := s.shares.GetShares(params.PoolID, holder)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"shares": balance.String()})
}

func (s *Server) handleSharesTotal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		PoolID uint64 `json:"poolId"`
	}
	if !s.decode(w, req, &params) {
		return
	}
	total, err := s.shares.GetTotalShares(params.PoolID)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"total": total.String()})
}
