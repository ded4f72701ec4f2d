package dto

import "github.com/SscSPs/onesuite_backend/internal/core/domain"

// TransitionRequest carries optional notes for submit, approve and mark-paid.
type TransitionRequest struct {
	Notes string `json:"notes"`
}

// RejectCommissionRequest requires a reason.
type RejectCommissionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// TransitionResponse is the result of one state-machine step.
type TransitionResponse struct {
	Commission CommissionResponse            `json:"commission"`
	History    []domain.ApprovalHistoryEntry `json:"history"`
	Cascaded   []CommissionResponse          `json:"cascaded,omitempty"`
}

// ToTransitionResponse builds the wire shape of a state-machine step.
func ToTransitionResponse(c domain.Commission, history []domain.ApprovalHistoryEntry, cascaded []domain.Commission) TransitionResponse {
	res := TransitionResponse{
		Commission: ToCommissionResponse(c),
		History:    history,
	}
	if res.History == nil {
		res.History = []domain.ApprovalHistoryEntry{}
	}
	if len(cascaded) > 0 {
		res.Cascaded = ToListCommissionResponse(cascaded)
	}
	return res
}
