package rpc

import (
	"net/http"
	"time"

	"crp/core/journal"
)

type journalRecordResult struct {
	Seq        uint64            `json:"seq"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

func journalToResults(records []journal.Record) []journalRecordResult {
	results := make([]journalRecordResult, len(records))
	for i, record := range records {
		results[i] = journalRecordResult{
			Seq:        record.Seq,
			Type:       record.Type,
			Attributes: record.Attributes,
			Timestamp:  record.Timestamp.Format(time.RFC3339),
		}
	}
	return results
}

func (s *Server) handleJournalTail(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Count int `json:"count"`
	}
	if !s.decode(w, req, &params) {
		return
	}
	records, err := s.journal.Tail(params.Count)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, journalToResults(records))
}

func (s *Server) handleJournalRange(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		From uint64 `json:"from"`
		To   uint64 `json:"to,omitempty"`
	}
	if !s.decode(w, req, &params) {
		return
	}
	records, err := s.journal.Range(params.From, params.To)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, journalToResults(records))
}
