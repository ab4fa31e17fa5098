package rpc

import (
	"net/http"

	"crp/native/membership"
)

type membershipRegisterParams struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
	Role    string `json:"role"`
}

type membershipAddressParams struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

type membershipRoleResult struct {
	Address string `json:"address"`
	Role    string `json:"role,omitempty"`
	Member  bool   `json:"member"`
}

func (s *Server) handleMembershipRegister(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params membershipRegisterParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddress(params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	role, ok := membership.ParseRole(params.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "unknown role", params.Role)
		return
	}
	if err := s.membership.RegisterRole(caller, addr, role); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, membershipRoleResult{Address: params.Address, Role: role.String(), Member: true})
}

func (s *Server) handleMembershipPreRegister(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params membershipRegisterParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddress(params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	role, ok := membership.ParseRole(params.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "unknown role", params.Role)
		return
	}
	if err := s.membership.PreRegister(caller, addr, role); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, membershipRoleResult{Address: params.Address, Role: role.String(), Member: false})
}

func (s *Server) handleMembershipAccept(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Caller string `json:"caller"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddress(params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	role, err := s.membership.AcceptRole(caller)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, membershipRoleResult{Address: params.Caller, Role: role.String(), Member: true})
}

func (s *Server) handleMembershipUpdate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params membershipRegisterParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddress(params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	role, ok := membership.ParseRole(params.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "unknown role", params.Role)
		return
	}
	if err := s.membership.UpdateRole(caller, addr, role); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, membershipRoleResult{Address: params.Address, Role: role.String(), Member: true})
}

func (s *Server) handleMembershipRevoke(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params membershipAddressParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddress(params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := s.membership.RevokeRole(caller, addr); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, membershipRoleResult{Address: params.Address, Member: false})
}

func (s *Server) handleMembershipRole(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Address string `json:"address"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	role, ok, err := s.membership.GetRole(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	result := membershipRoleResult{Address: params.Address, Member: ok}
	if ok {
		result.Role = role.String()
	}
	writeResult(w, req.ID, result)
}

type complianceParams struct {
	Caller      string `json:"caller,omitempty"`
	Address     string `json:"address"`
	Whitelisted bool   `json:"whitelisted"`
}

type complianceResult struct {
	Address     string `json:"address"`
	Whitelisted bool   `json:"whitelisted"`
}

func (s *Server) handleComplianceSetWhitelisted(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params complianceParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddress(params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := s.compliance.SetWhitelisted(caller, addr, params.Whitelisted); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, complianceResult{Address: params.Address, Whitelisted: params.Whitelisted})
}

func (s *Server) handleComplianceIsWhitelisted(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Address string `json:"address"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	whitelisted, err := s.compliance.IsWhitelisted(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, complianceResult{Address: params.Address, Whitelisted: whitelisted})
}
