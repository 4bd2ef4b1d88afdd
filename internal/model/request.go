package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest status enum constants
const (
	StatusSubmitted = "submitted"
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusReturned  = "returned"
	StatusCancelled = "cancelled"
)

// ApprovalHistory action enum constants
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionReturn  = "return"
	ActionCancel  = "cancel"
)

// IsTerminalStatus reports whether a request in this status accepts no further
// approval actions.
func IsTerminalStatus(status string) bool {
	return status == StatusApproved || status == StatusRejected || status == StatusCancelled
}

// PurchaseRequest is one requisition moving through the approval chain.
// TotalEstimatedCost is recomputed from line items on every line-item mutation.
type PurchaseRequest struct {
	ID                           uint              `gorm:"primaryKey" json:"id"`
	RequisitionNumber            string            `gorm:"type:varchar(50);uniqueIndex;not null" json:"requisition_number"`
	Title                        string            `gorm:"type:varchar(255);not null" json:"title"`
	RequestDate                  time.Time         `gorm:"not null" json:"request_date"`
	Department                   string            `gorm:"type:varchar(100);not null;index" json:"department"`
	Location                     string            `gorm:"type:varchar(100);not null" json:"location"`
	BusinessJustificationCode    string            `gorm:"type:varchar(50);not null" json:"business_justification_code"`
	BusinessJustificationDetails string            `gorm:"type:text;not null" json:"business_justification_details"`
	Status                       string            `gorm:"type:varchar(50);not null;default:'submitted';index" json:"status"`
	CurrentApprovalLevel         int               `gorm:"not null;default:1" json:"current_approval_level"`
	TotalEstimatedCost           decimal.Decimal   `gorm:"type:decimal(15,2);not null;default:0" json:"total_estimated_cost"`
	RequesterID                  uint              `gorm:"not null;index" json:"requester_id"`
	Requester                    *User             `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	CurrentApproverID            *uint             `json:"current_approver_id"`
	CurrentApprover              *User             `gorm:"foreignKey:CurrentApproverID" json:"current_approver,omitempty"`
	LineItems                    []LineItem        `gorm:"foreignKey:PurchaseRequestID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
	Attachments                  []Attachment      `gorm:"foreignKey:PurchaseRequestID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
	ApprovalHistory              []ApprovalHistory `gorm:"foreignKey:PurchaseRequestID;constraint:OnDelete:CASCADE" json:"approval_history,omitempty"`
	CreatedAt                    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// LineItem is a single requested good/service belonging to one purchase request
type LineItem struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	PurchaseRequestID uint            `gorm:"not null;index" json:"purchase_request_id"`
	ItemName          string          `gorm:"type:varchar(255);not null" json:"item_name"`
	RequiredQuantity  int             `gorm:"not null" json:"required_quantity"`
	UnitOfMeasure     string          `gorm:"type:varchar(50);not null" json:"unit_of_measure"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
	RequiredByDate    time.Time       `gorm:"not null" json:"required_by_date"`
	DeliveryLocation  string          `gorm:"type:varchar(255);not null" json:"delivery_location"`
	ItemJustification string          `gorm:"type:text" json:"item_justification"`
	StockAvailable    int             `gorm:"default:0" json:"stock_available"`
	StockLocation     string          `gorm:"type:varchar(255)" json:"stock_location"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// Cost returns the line contribution to the request total
func (li LineItem) Cost() decimal.Decimal {
	return li.UnitCost.Mul(decimal.NewFromInt(int64(li.RequiredQuantity)))
}

// Attachment stores metadata for a file uploaded against a request.
// Immutable once uploaded; delete removes both row and file.
type Attachment struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	PurchaseRequestID uint      `gorm:"not null;index" json:"purchase_request_id"`
	FileName          string    `gorm:"type:varchar(255);not null" json:"file_name"`
	OriginalName      string    `gorm:"type:varchar(255);not null" json:"original_name"`
	FileSize          int64     `gorm:"not null" json:"file_size"`
	MimeType          string    `gorm:"type:varchar(100);not null" json:"mime_type"`
	FilePath          string    `gorm:"type:varchar(500);not null" json:"file_path"`
	UploadedAt        time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

// ApprovalHistory is the append-only audit trail of approval actions
type ApprovalHistory struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	PurchaseRequestID uint      `gorm:"not null;index" json:"purchase_request_id"`
	ApproverID        uint      `gorm:"not null" json:"approver_id"`
	Approver          *User     `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Action            string    `gorm:"type:varchar(50);not null" json:"action"`
	Comments          string    `gorm:"type:text" json:"comments"`
	ApprovalLevel     int       `gorm:"not null" json:"approval_level"`
	ActionDate        time.Time `gorm:"autoCreateTime;index" json:"action_date"`
}
