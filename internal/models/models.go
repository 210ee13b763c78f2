package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Problem represents an uploaded problem image
type Problem struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Filename    string    `gorm:"size:255;not null" json:"filename"`
	FilePath    string    `gorm:"size:500;not null" json:"file_path"`
	ContentHash string    `gorm:"size:64;not null;unique" json:"content_hash"`
	ImageSize   int64     `gorm:"not null" json:"image_size"`
	UploadedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"uploaded_at"`

	// Relationships
	Debates []DebateRecord `gorm:"foreignKey:ProblemID" json:"debates,omitempty"`
}

// DebateRecord represents one orchestrator invocation over a problem
type DebateRecord struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	ProblemID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"problem_id"`
	JobID        uuid.UUID      `gorm:"type:uuid;not null;unique;index" json:"job_id"`
	Status       string         `gorm:"size:20;not null;default:'pending';index" json:"status"` // pending, processing, completed, failed
	EnableDebate bool           `gorm:"not null;default:true" json:"enable_debate"`
	Mode         *string        `gorm:"size:20" json:"mode,omitempty"` // single_agent, unanimous, consensus, majority_vote
	Answer       *string        `gorm:"size:10" json:"answer,omitempty"`
	Confidence   *int           `gorm:"check:confidence >= 0 AND confidence <= 100" json:"confidence,omitempty"`
	Reasoning    *string        `gorm:"type:text" json:"reasoning,omitempty"`
	AgentsUsed   int            `gorm:"not null;default:0" json:"agents_used"`
	Votes        datatypes.JSON `gorm:"type:jsonb" json:"votes,omitempty"` // answer label -> vote count
	CreatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message,omitempty"`

	// Relationships
	Problem  Problem        `gorm:"foreignKey:ProblemID" json:"problem,omitempty"`
	Opinions []AgentOpinion `gorm:"foreignKey:DebateID;constraint:OnDelete:CASCADE" json:"opinions,omitempty"`
}

// AgentOpinion represents a single agent's contribution to a debate
type AgentOpinion struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	DebateID     uuid.UUID `gorm:"type:uuid;not null;index" json:"debate_id"`
	AgentName    string    `gorm:"size:100;not null" json:"agent_name"`
	Answer       string    `gorm:"size:10;not null" json:"answer"`
	Confidence   int       `gorm:"not null;check:confidence >= 0 AND confidence <= 100" json:"confidence"`
	Reasoning    string    `gorm:"type:text" json:"reasoning"`
	Success      bool      `gorm:"not null" json:"success"`
	IsConsensus  bool      `gorm:"not null;default:false" json:"is_consensus"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message,omitempty"`
	RecordedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"recorded_at"`

	// Relationships
	Debate DebateRecord `gorm:"foreignKey:DebateID" json:"debate,omitempty"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (p *Problem) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (d *DebateRecord) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.JobID == uuid.Nil {
		d.JobID = uuid.New()
	}
	return nil
}

func (o *AgentOpinion) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// AutoMigrate runs schema migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Problem{},
		&DebateRecord{},
		&AgentOpinion{},
	)
}
