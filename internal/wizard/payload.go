package wizard

import (
	"encoding/json"
	"os"
	"strings"

	"hostel-portal/internal/model"
	"hostel-portal/internal/upstream"
	"hostel-portal/pkg/apierror"
)

// BuildForm assembles the outgoing multipart payload. Fields whose trimmed
// value is empty are omitted entirely, as is either address when every
// component of it is empty, so a save touching three fields carries
// exactly three. The returned closer releases the attachment readers and
// must be called once the form has been consumed.
func (d *Draft) BuildForm() (*upstream.Form, func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	form := upstream.NewForm()

	scalars := []struct {
		name  string
		value string
	}{
		{"name", d.fields.Name},
		{"email", d.fields.Email},
		{"rollNo", d.fields.RollNo},
		{"contactNumber", d.fields.ContactNumber},
		{"guardianName", d.fields.GuardianName},
		{"guardianRelation", d.fields.GuardianRelation},
		{"guardianContact", d.fields.GuardianContact},
		{"guardianEmail", d.fields.GuardianEmail},
		{"department", d.fields.Department},
		{"hostel", d.fields.Hostel},
		{"roomNumber", d.fields.RoomNumber},
		{"mealsOptIn", d.fields.MealsOptIn},
		{"stayDuration", d.fields.StayDuration},
	}
	for _, s := range scalars {
		if strings.TrimSpace(s.value) == "" {
			continue
		}
		form.AddField(s.name, s.value)
	}

	if err := addAddress(form, "residentialAddress", d.fields.Residential, d.fields.ResidentialRaw); err != nil {
		return nil, nil, err
	}
	if err := addAddress(form, "permanentAddress", d.fields.Permanent, d.fields.PermanentRaw); err != nil {
		return nil, nil, err
	}

	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, field := range attachmentFields {
		att, ok := d.files[field]
		if !ok {
			continue
		}
		f, err := os.Open(att.Path)
		if err != nil {
			closeAll()
			return nil, nil, apierror.New("ATTACHMENT_UNREADABLE", "attached file is no longer readable", att.Name, 500)
		}
		opened = append(opened, f)
		form.AddFile(field, att.Name, f)
	}

	return form, closeAll, nil
}

func addAddress(form *upstream.Form, name string, addr model.Address, raw string) error {
	if raw != "" {
		form.AddField(name, raw)
		return nil
	}
	if addr.Empty() {
		return nil
	}
	b, err := json.Marshal(addr)
	if err != nil {
		return apierror.New("ADDRESS_ENCODE_FAILED", "could not serialize address", name, 500)
	}
	form.AddField(name, string(b))
	return nil
}
