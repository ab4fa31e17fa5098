package rpc

import "net/http"

type registryParams struct {
	Caller  string `json:"caller,omitempty"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

func (s *Server) handleRegistryRegister(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registryParams
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	addr, ok := s.addrParam(w, req.ID, params.Address)
	if !ok {
		return
	}
	if err := s.registry.Register(caller, params.Name, addr); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"name": params.Name, "address": params.Address})
}

func (s *Server) handleRegistryRemove(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registryParams
	if !s.decode(w, req, &params) {
		return
	}
	caller, ok := s.addrParam(w, req.ID, params.Caller)
	if !ok {
		return
	}
	if err := s.registry.Remove(caller, params.Name); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"name": params.Name})
}

func (s *Server) handleRegistryResolve(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registryParams
	if !s.decode(w, req, &params) {
		return
	}
	addr, err := s.registry.Resolve(params.Name)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"name": params.Name, "address": encodeAddress(addr)})
}

func (s *Server) handleRegistryList(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	names, err := s.registry.List()
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, names)
}
