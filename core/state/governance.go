package state

import "crp/native/governance"

// GovernanceNextProposalID allocates the next proposal identifier.
func (m *Manager) GovernanceNextProposalID() (uint64, error) {
	return m.nextID("governance")
}

// GovernanceGetProposal loads a proposal record.
func (m *Manager) GovernanceGetProposal(id uint64) (*governance.Proposal, bool, error) {
	p := &governance.Proposal{}
	ok, err := m.getJSON(stateKey("governance", "proposal", formatID(id)), p)
	if err != nil || !ok {
		return nil, false, err
	}
	return p, true, nil
}

// GovernancePutProposal persists the proposal record.
func (m *Manager) GovernancePutProposal(p *governance.Proposal) error {
	return m.putJSON(stateKey("governance", "proposal", formatID(p.ID)), p)
}

// GovernanceGetVote loads the voter's ballot on the proposal.
func (m *Manager) GovernanceGetVote(id uint64, voter [20]byte) (*governance.Vote, bool, error) {
	v := &governance.Vote{}
	ok, err := m.getJSON(stateKey("governance", "vote", formatID(id), addrHex(voter)), v)
	if err != nil || !ok {
		return nil, false, err
	}
	return v, true, nil
}

// GovernancePutVote persists the ballot.
func (m *Manager) GovernancePutVote(v *governance.Vote) error {
	return m.putJSON(stateKey("governance", "vote", formatID(v.ProposalID), addrHex(v.Voter)), v)
}
