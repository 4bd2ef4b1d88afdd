package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"gorm.io/gorm"

	"github.com/AdityaDodda/purchase-kandhari/internal/model"
)

// masterKind describes one master-data table managed through the generic
// admin CRUD surface. Adding a table means adding one registry entry.
type masterKind struct {
	label    string
	newOne   func() interface{}
	newSlice func() interface{}
}

var masterRegistry = map[string]masterKind{
	"entities": {
		label:    "entity",
		newOne:   func() interface{} { return &model.Entity{} },
		newSlice: func() interface{} { return &[]model.Entity{} },
	},
	"departments": {
		label:    "department",
		newOne:   func() interface{} { return &model.Department{} },
		newSlice: func() interface{} { return &[]model.Department{} },
	},
	"locations": {
		label:    "location",
		newOne:   func() interface{} { return &model.Location{} },
		newSlice: func() interface{} { return &[]model.Location{} },
	},
	"roles": {
		label:    "role",
		newOne:   func() interface{} { return &model.Role{} },
		newSlice: func() interface{} { return &[]model.Role{} },
	},
	"approval-matrix": {
		label:    "approval matrix entry",
		newOne:   func() interface{} { return &model.ApprovalMatrix{} },
		newSlice: func() interface{} { return &[]model.ApprovalMatrix{} },
	},
	"escalation-matrix": {
		label:    "escalation matrix entry",
		newOne:   func() interface{} { return &model.EscalationMatrix{} },
		newSlice: func() interface{} { return &[]model.EscalationMatrix{} },
	},
	"inventory": {
		label:    "inventory item",
		newOne:   func() interface{} { return &model.InventoryItem{} },
		newSlice: func() interface{} { return &[]model.InventoryItem{} },
	},
	"vendors": {
		label:    "vendor",
		newOne:   func() interface{} { return &model.Vendor{} },
		newSlice: func() interface{} { return &[]model.Vendor{} },
	},
}

// MasterTypes lists the registered master-data type tags, sorted for stable
// responses.
func MasterTypes() []string {
	types := make([]string, 0, len(masterRegistry))
	for t := range masterRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

type MasterService interface {
	List(ctx context.Context, typeTag string) (interface{}, error)
	Create(ctx context.Context, typeTag string, bind func(dst interface{}) error) (interface{}, error)
	Update(ctx context.Context, typeTag string, id uint, bind func(dst interface{}) error) (interface{}, error)
	Delete(ctx context.Context, typeTag string, id uint) error
}

type masterService struct {
	db *gorm.DB
}

func NewMasterService(db *gorm.DB) MasterService {
	return &masterService{db: db}
}

func (s *masterService) List(ctx context.Context, typeTag string) (interface{}, error) {
	kind, ok := masterRegistry[typeTag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown master type %q", ErrInvalidInput, typeTag)
	}
	rows := kind.newSlice()
	if err := s.db.WithContext(ctx).Order("id").Find(rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Create binds the request body into a fresh record via bind, then inserts
// it. bind receives the concrete model pointer for the type tag.
func (s *masterService) Create(ctx context.Context, typeTag string, bind func(dst interface{}) error) (interface{}, error) {
	kind, ok := masterRegistry[typeTag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown master type %q", ErrInvalidInput, typeTag)
	}
	record := kind.newOne()
	if err := bind(record); err != nil {
		return nil, fmt.Errorf("%w: invalid %s payload: %v", ErrInvalidInput, kind.label, err)
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", kind.label, err)
	}
	return record, nil
}

func (s *masterService) Update(ctx context.Context, typeTag string, id uint, bind func(dst interface{}) error) (interface{}, error) {
	kind, ok := masterRegistry[typeTag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown master type %q", ErrInvalidInput, typeTag)
	}
	record := kind.newOne()
	if err := s.db.WithContext(ctx).First(record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := bind(record); err != nil {
		return nil, fmt.Errorf("%w: invalid %s payload: %v", ErrInvalidInput, kind.label, err)
	}
	setRecordID(record, id) // the body must not reassign the primary key
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", kind.label, err)
	}
	return record, nil
}

func (s *masterService) Delete(ctx context.Context, typeTag string, id uint) error {
	kind, ok := masterRegistry[typeTag]
	if !ok {
		return fmt.Errorf("%w: unknown master type %q", ErrInvalidInput, typeTag)
	}
	res := s.db.WithContext(ctx).Delete(kind.newOne(), "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", kind.label, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func setRecordID(record interface{}, id uint) {
	v := reflect.ValueOf(record).Elem().FieldByName("ID")
	if v.IsValid() && v.CanSet() {
		v.SetUint(uint64(id))
	}
}
