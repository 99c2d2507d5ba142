package model

import (
	"strings"
	"time"
)

// Address is one nested address block of a student record. The upstream API
// sometimes returns these as serialized JSON text; the wizard's reconcile
// step turns them back into structs.
type Address struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	District string `json:"district"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
	Country  string `json:"country"`
}

// Empty reports whether every field is blank after trimming.
func (a Address) Empty() bool {
	for _, v := range []string{a.Line1, a.Line2, a.District, a.State, a.Pincode, a.Country} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (a Address) Equal(b Address) bool {
	return a == b
}

type Attachment struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// StudentRecord is the canonical shape of a student as owned by the remote
// store. IDs are opaque server-assigned identifiers.
type StudentRecord struct {
	ID                 string       `json:"_id,omitempty"`
	Name               string       `json:"name"`
	Email              string       `json:"email"`
	RollNo             string       `json:"rollNo"`
	ContactNumber      string       `json:"contactNumber,omitempty"`
	ResidentialAddress *Address     `json:"residentialAddress,omitempty"`
	PermanentAddress   *Address     `json:"permanentAddress,omitempty"`
	GuardianName       string       `json:"guardianName,omitempty"`
	GuardianContact    string       `json:"guardianContact,omitempty"`
	GuardianRelation   string       `json:"guardianRelation,omitempty"`
	GuardianEmail      string       `json:"guardianEmail,omitempty"`
	Department         string       `json:"department,omitempty"`
	Hostel             string       `json:"hostel,omitempty"`
	RoomNumber         string       `json:"roomNumber,omitempty"`
	MealsOptIn         string       `json:"mealsOptIn,omitempty"`
	StayDuration       string       `json:"stayDuration,omitempty"`
	Documents          []Attachment `json:"documents,omitempty"`
}

const (
	StatusPending    = "pending"
	StatusInProgress = "in progress"
	StatusResolved   = "resolved"
)

var (
	ComplaintCategories = []string{"student", "misplace", "damage", "lost", "food", "delivery", "other"}
	ComplaintSeverities = []string{"low", "medium", "high", "critical"}
	ComplaintStatuses   = []string{StatusPending, StatusInProgress, StatusResolved}
)

type Complaint struct {
	ID          string       `json:"_id,omitempty"`
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	StudentRoll string       `json:"studentRoll,omitempty"`
	Severity    string       `json:"severity"`
	Status      string       `json:"status"`
	Documents   []Attachment `json:"documents,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitempty"`
}

// StockCategories is the closed set of hostel-operation inventory categories.
// IDs must match the upstream category field.
var StockCategories = []struct {
	ID    string
	Title string
}{
	{"infrastructure", "Hostel Infrastructure & Maintenance"},
	{"mess", "Mess & Kitchen"},
	{"housekeeping", "Housekeeping & Sanitation"},
	{"amenities", "Student Amenities & Common Areas"},
	{"medical", "Medical & First Aid"},
	{"admin", "Administrative & Office"},
	{"safety", "Safety & Emergency"},
	{"it", "IT / Internet / Communication"},
	{"services", "External Services (contracts)"},
}

func ValidStockCategory(id string) bool {
	for _, c := range StockCategories {
		if c.ID == id {
			return true
		}
	}
	return false
}

type StockItem struct {
	ID           string `json:"_id,omitempty"`
	Category     string `json:"category"`
	Name         string `json:"name"`
	Qty          string `json:"qty,omitempty"`
	Unit         string `json:"unit,omitempty"`
	Note         string `json:"note,omitempty"`
	ReorderLevel string `json:"reorderLevel,omitempty"`
	Supplier     string `json:"supplier,omitempty"`
}

type Notification struct {
	ID        string         `json:"_id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Meta      map[string]any `json:"meta,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"createdAt,omitempty"`
}
