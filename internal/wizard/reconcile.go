package wizard

import (
	"encoding/json"
	"fmt"

	"hostel-portal/internal/model"
)

// Reconcile maps a fetched record, whatever shape its fields arrived in,
// onto the canonical draft fields. Addresses may come back as objects or
// as serialized strings; a string that fails to parse is kept verbatim so
// an edit never destroys data it could not interpret. The same-address
// toggle is derived from structural equality of the two addresses.
func Reconcile(raw map[string]any) (Fields, bool) {
	f := Fields{
		Name:             str(raw, "name"),
		Email:            str(raw, "email"),
		RollNo:           str(raw, "rollNo"),
		ContactNumber:    str(raw, "contactNumber"),
		GuardianName:     str(raw, "guardianName"),
		GuardianRelation: str(raw, "guardianRelation"),
		GuardianContact:  str(raw, "guardianContact"),
		GuardianEmail:    str(raw, "guardianEmail"),
		Department:       str(raw, "department"),
		Hostel:           str(raw, "hostel"),
		RoomNumber:       str(raw, "roomNumber"),
		MealsOptIn:       str(raw, "mealsOptIn"),
		StayDuration:     str(raw, "stayDuration"),
	}

	f.Residential, f.ResidentialRaw = address(raw["residentialAddress"])
	f.Permanent, f.PermanentRaw = address(raw["permanentAddress"])

	same := false
	if f.ResidentialRaw != "" || f.PermanentRaw != "" {
		same = f.ResidentialRaw != "" && f.ResidentialRaw == f.PermanentRaw
	} else {
		// Two empty addresses count as equal, so a fresh record prefills
		// with the toggle on.
		same = f.Residential.Equal(f.Permanent)
	}

	return f, same
}

func str(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func address(v any) (model.Address, string) {
	switch val := v.(type) {
	case nil:
		return model.Address{}, ""
	case map[string]any:
		var addr model.Address
		if b, err := json.Marshal(val); err == nil {
			_ = json.Unmarshal(b, &addr)
		}
		return addr, ""
	case string:
		var addr model.Address
		if err := json.Unmarshal([]byte(val), &addr); err == nil {
			return addr, ""
		}
		return model.Address{}, val
	default:
		return model.Address{}, ""
	}
}
