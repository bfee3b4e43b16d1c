package model

// DeliverableFilter selects deliverables by parent. Empty fields are ignored.
type DeliverableFilter struct {
	ProjectID   string
	SprintID    string
	MilestoneID string
	Status      DeliverableStatus
}

// UpdateQuery searches the project feed. TitleContains and BodyContains are
// case-sensitive substring matches; SourceKey is an exact match.
type UpdateQuery struct {
	ProjectID     string
	Type          UpdateType
	TitleContains string
	BodyContains  string
	SourceKey     string
}
