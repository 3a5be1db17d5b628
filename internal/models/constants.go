package models

// Роли пользователей
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ProposalStatus константы статусов предложений
const (
	ProposalStatusDraft           = "draft"
	ProposalStatusPendingApproval = "pending_approval"
	ProposalStatusApproved        = "approved"
	ProposalStatusRejected        = "rejected"
)

// RuleSeverity константы строгости правил
const (
	RuleSeverityError   = "error"
	RuleSeverityWarning = "warning"
)

// ValidProposalStatuses список валидных статусов предложений
var ValidProposalStatuses = map[string]struct{}{
	ProposalStatusDraft:           {},
	ProposalStatusPendingApproval: {},
	ProposalStatusApproved:        {},
	ProposalStatusRejected:        {},
}

// ValidRoles список валидных ролей
var ValidRoles = map[string]struct{}{
	RoleUser:  {},
	RoleAdmin: {},
}

// IsEditableStatus сообщает, может ли владелец редактировать предложение в данном статусе.
func IsEditableStatus(status string) bool {
	return status == ProposalStatusDraft || status == ProposalStatusRejected
}
