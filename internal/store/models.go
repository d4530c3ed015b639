package store

import "time"

// ProjectStatus is the derived lifecycle state of a project.
type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectProcessing ProjectStatus = "processing"
	ProjectCompleted  ProjectStatus = "completed"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectDraft, ProjectProcessing, ProjectCompleted:
		return true
	}
	return false
}

// Project is one video production. Empty strings stand for unset values;
// Tags is nil until metadata has been applied.
type Project struct {
	ID              string
	Genre           string
	Title           string
	Topic           string
	Script          string
	VideoTitle      string
	Description     string
	Tags            []string
	Status          ProjectStatus
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasScript reports whether the script stage has produced output.
func (p *Project) HasScript() bool {
	return p != nil && p.Script != ""
}

// NewProject holds the fields accepted when creating a project.
type NewProject struct {
	Genre           string
	Title           string
	Topic           string
	Script          string
	DurationMinutes int
	Status          ProjectStatus
}

// ProjectUpdate applies only its non-nil fields. Pointing a string field at
// "" clears it.
type ProjectUpdate struct {
	Genre           *string
	Title           *string
	Topic           *string
	Script          *string
	VideoTitle      *string
	Description     *string
	Tags            *[]string
	Status          *ProjectStatus
	DurationMinutes *int
}

// ProjectFilter narrows ListProjects and DeleteProjects. Zero values match all.
type ProjectFilter struct {
	Status ProjectStatus
	Genre  string
}

// Scene is one narrated segment of a project.
type Scene struct {
	ID              string
	ProjectID       string
	Order           int
	Text            string
	ImagePrompt     string
	ImageURL        string
	VoiceURL        string
	DurationSeconds float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasVoice reports whether narration audio has been attached.
func (s *Scene) HasVoice() bool { return s.VoiceURL != "" }

// HasImage reports whether an image has been attached.
func (s *Scene) HasImage() bool { return s.ImageURL != "" }

// NewScene holds the fields accepted when creating a scene.
type NewScene struct {
	Order       int
	Text        string
	ImagePrompt string
}

// SceneUpdate applies only its non-nil fields.
type SceneUpdate struct {
	Text            *string
	ImagePrompt     *string
	ImageURL        *string
	VoiceURL        *string
	DurationSeconds *float64
}

// SceneFilter narrows ListScenes.
type SceneFilter struct {
	ProjectID    string
	MissingVoice bool
	MissingImage bool
}

// CredentialKey is one provider API key tracked by the credential pool.
type CredentialKey struct {
	ID         string
	Seq        int64
	Name       string
	Secret     string
	UsageCount int64
	IsActive   bool
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// NewCredential holds the fields accepted when creating a credential key.
type NewCredential struct {
	Name     string
	Secret   string
	IsActive bool
}

// CredentialUpdate applies only its non-nil fields. Usage is changed only
// through ClaimLeastUsedCredential and ResetCredentialUsage.
type CredentialUpdate struct {
	Name     *string
	Secret   *string
	IsActive *bool
}

// CredentialFilter narrows ListCredentials and DeleteCredentials.
type CredentialFilter struct {
	ActiveOnly   bool
	InactiveOnly bool
}

// ApprovalStatus is the review state of an access request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// ApprovalRequest records a request for access.
type ApprovalRequest struct {
	ID         string
	Email      string
	Name       string
	Status     ApprovalStatus
	InviteCode string
	CreatedAt  time.Time
}

// NewApprovalRequest holds the fields accepted when creating a request.
type NewApprovalRequest struct {
	Email string
	Name  string
}

// ApprovalUpdate applies only its non-nil fields.
type ApprovalUpdate struct {
	Name       *string
	Status     *ApprovalStatus
	InviteCode *string
}

// ApprovalFilter narrows ListApprovalRequests and DeleteApprovalRequests.
type ApprovalFilter struct {
	Status ApprovalStatus
}
