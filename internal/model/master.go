package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Master data reference tables managed through the admin CRUD registry.
// None of these carry lifecycle coupling to purchase requests beyond lookups.

// Entity is a legal/business entity
type Entity struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Code        string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Department struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Code      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	EntityID  *uint     `json:"entity_id"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Location struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Code      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Address   string    `gorm:"type:text" json:"address"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Role is the master list of assignable roles; authorization itself is driven
// by the role string on User.
type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ApprovalMatrix maps department+location+level to a designated approver and
// an amount band. Reference data only; the approve handlers do not consult it
// to gate transitions.
type ApprovalMatrix struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	Department     string           `gorm:"type:varchar(100);not null;index" json:"department"`
	Location       string           `gorm:"type:varchar(100);not null" json:"location"`
	ApprovalLevel  int              `gorm:"not null" json:"approval_level"`
	ApproverID     uint             `gorm:"not null" json:"approver_id"`
	Approver       *User            `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	MinAmount      decimal.Decimal  `gorm:"type:decimal(15,2);default:0" json:"min_amount"`
	MaxAmount      *decimal.Decimal `gorm:"type:decimal(15,2)" json:"max_amount"`
	EscalationDays int              `gorm:"not null;default:3" json:"escalation_days"`
	IsActive       bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// EscalationMatrix names who gets notified when a request sits unattended
// past EscalationDays at a given level.
type EscalationMatrix struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Department     string    `gorm:"type:varchar(100);not null;index" json:"department"`
	Location       string    `gorm:"type:varchar(100);not null" json:"location"`
	ApprovalLevel  int       `gorm:"not null" json:"approval_level"`
	EscalateToID   uint      `gorm:"not null" json:"escalate_to_id"`
	EscalateTo     *User     `gorm:"foreignKey:EscalateToID" json:"escalate_to,omitempty"`
	EscalationDays int       `gorm:"not null;default:3" json:"escalation_days"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type InventoryItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ItemName       string    `gorm:"type:varchar(255);not null" json:"item_name"`
	ItemCode       string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"item_code"`
	UnitOfMeasure  string    `gorm:"type:varchar(50)" json:"unit_of_measure"`
	QuantityOnHand int       `gorm:"not null;default:0" json:"quantity_on_hand"`
	StockLocation  string    `gorm:"type:varchar(255)" json:"stock_location"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Vendor struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Code          string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	ContactPerson string    `gorm:"type:varchar(255)" json:"contact_person"`
	Email         string    `gorm:"type:varchar(255)" json:"email"`
	Phone         string    `gorm:"type:varchar(50)" json:"phone"`
	Address       string    `gorm:"type:text" json:"address"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
