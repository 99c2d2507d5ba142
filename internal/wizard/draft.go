// Package wizard implements the multi-step student record workflow: five
// ordered steps accumulate one composite record in memory, then submit it
// as a single multipart operation, in create or edit mode.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hostel-portal/internal/model"
	"hostel-portal/internal/upstream"
	"hostel-portal/pkg/apierror"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

const (
	StepPersonal = iota
	StepAddress
	StepGuardian
	StepAllocation
	StepMeals

	lastStep = StepMeals
)

var stepTitles = [...]string{"Personal", "Address", "Guardian", "Docs & Allocation", "Meals"}

// Fields is the canonical draft shape. Addresses keep a raw text fallback:
// when an edit prefill arrives with a serialized address that does not
// parse, the raw value is preserved and submitted verbatim rather than
// failing the load.
type Fields struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	RollNo        string `json:"rollNo"`
	ContactNumber string `json:"contactNumber"`

	Residential    model.Address `json:"residentialAddress"`
	Permanent      model.Address `json:"permanentAddress"`
	ResidentialRaw string        `json:"-"`
	PermanentRaw   string        `json:"-"`

	GuardianName     string `json:"guardianName"`
	GuardianRelation string `json:"guardianRelation"`
	GuardianContact  string `json:"guardianContact"`
	GuardianEmail    string `json:"guardianEmail"`

	Department string `json:"department"`
	Hostel     string `json:"hostel"`
	RoomNumber string `json:"roomNumber"`

	MealsOptIn   string `json:"mealsOptIn"`
	StayDuration string `json:"stayDuration"`
}

// Draft is one in-progress wizard. All mutation goes through methods; the
// handler layer never touches fields directly.
type Draft struct {
	mu          sync.Mutex
	id          string
	mode        Mode
	recordID    string
	step        int
	fields      Fields
	sameAddress bool
	files       map[string]*Attachment
	previewRoot string
}

func newDraft(mode Mode, previewRoot string) *Draft {
	return &Draft{
		id:          uuid.NewString(),
		mode:        mode,
		files:       map[string]*Attachment{},
		previewRoot: previewRoot,
	}
}

func (d *Draft) ID() string { return d.id }

func (d *Draft) Mode() Mode { return d.mode }

// Step returns the current zero-based step index.
func (d *Draft) Step() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.step
}

// Next advances one step, clamped to the last step. No skipping.
func (d *Draft) Next() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.step < lastStep {
		d.step++
	}
	return d.step
}

// Back retreats one step, clamped to the first.
func (d *Draft) Back() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.step > 0 {
		d.step--
	}
	return d.step
}

// SetField routes a named update into the draft. Dotted names
// ("residentialAddress.line1") address nested objects. While the
// same-address toggle is on, every residential edit is mirrored into the
// permanent address in the same update, and the permanent fields reject
// direct edits.
func (d *Draft) SetField(name string, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if parent, key, dotted := strings.Cut(name, "."); dotted {
		return d.setAddressField(parent, key, value)
	}

	switch name {
	case "name":
		d.fields.Name = value
	case "email":
		d.fields.Email = value
	case "rollNo":
		d.fields.RollNo = value
	case "contactNumber":
		d.fields.ContactNumber = value
	case "guardianName":
		d.fields.GuardianName = value
	case "guardianRelation":
		d.fields.GuardianRelation = value
	case "guardianContact":
		d.fields.GuardianContact = value
	case "guardianEmail":
		d.fields.GuardianEmail = value
	case "department":
		d.fields.Department = value
	case "hostel":
		d.fields.Hostel = value
	case "roomNumber":
		d.fields.RoomNumber = value
	case "mealsOptIn":
		d.fields.MealsOptIn = value
	case "stayDuration":
		d.fields.StayDuration = value
	default:
		return apierror.BadRequest("unknown field", name)
	}

	return nil
}

func (d *Draft) setAddressField(parent string, key string, value string) error {
	var target *model.Address
	switch parent {
	case "residentialAddress":
		target = &d.fields.Residential
		d.fields.ResidentialRaw = ""
	case "permanentAddress":
		if d.sameAddress {
			return apierror.BadRequest("permanent address mirrors residential while the same-address toggle is on", parent+"."+key)
		}
		target = &d.fields.Permanent
		d.fields.PermanentRaw = ""
	default:
		return apierror.BadRequest("unknown field", parent+"."+key)
	}

	switch key {
	case "line1":
		target.Line1 = value
	case "line2":
		target.Line2 = value
	case "district":
		target.District = value
	case "state":
		target.State = value
	case "pincode":
		target.Pincode = value
	case "country":
		target.Country = value
	default:
		return apierror.BadRequest("unknown field", parent+"."+key)
	}

	if parent == "residentialAddress" && d.sameAddress {
		d.fields.Permanent = d.fields.Residential
		d.fields.PermanentRaw = d.fields.ResidentialRaw
	}

	return nil
}

// SetSameAddress toggles address mirroring. Enabling it copies the
// residential address over the permanent one immediately.
func (d *Draft) SetSameAddress(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sameAddress = on
	if on {
		d.fields.Permanent = d.fields.Residential
		d.fields.PermanentRaw = d.fields.ResidentialRaw
	}
}

func (d *Draft) SameAddress() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sameAddress
}

func (d *Draft) Fields() Fields {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fields
}

// Validate is the local gate before any submission attempt: name, email
// and roll number must be non-empty, otherwise the failure lists the
// missing fields and no request is sent.
func (d *Draft) Validate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var missing []string
	if strings.TrimSpace(d.fields.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(d.fields.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(d.fields.RollNo) == "" {
		missing = append(missing, "rollNo")
	}

	if len(missing) > 0 {
		return apierror.New("VALIDATION_FAILED",
			"please fill the required fields (name, email, roll number)",
			strings.Join(missing, ", "),
			422)
	}

	return nil
}

// SubmitClient is the slice of the upstream client the wizard needs.
type SubmitClient interface {
	CreateStudent(ctx context.Context, form *upstream.Form) (model.StudentRecord, error)
	UpdateStudent(ctx context.Context, id string, form *upstream.Form) (model.StudentRecord, error)
	SendNotification(ctx context.Context, req upstream.NotificationRequest) error
}

// Submit validates, builds the multipart payload and issues the create or
// update call. On success a best-effort notification is dispatched to the
// record's email contact; its outcome never affects the save.
func (d *Draft) Submit(ctx context.Context, client SubmitClient) (model.StudentRecord, error) {
	if err := d.Validate(); err != nil {
		return model.StudentRecord{}, err
	}

	form, closeParts, err := d.BuildForm()
	if err != nil {
		return model.StudentRecord{}, err
	}
	defer closeParts()

	var saved model.StudentRecord
	if d.mode == ModeEdit && d.recordID != "" {
		saved, err = client.UpdateStudent(ctx, d.recordID, form)
	} else {
		saved, err = client.CreateStudent(ctx, form)
	}
	if err != nil {
		return model.StudentRecord{}, err
	}

	d.notifySaved(client, saved)

	return saved, nil
}

// notifySaved fires the post-save notification without waiting on it.
func (d *Draft) notifySaved(client SubmitClient, saved model.StudentRecord) {
	if saved.Email == "" {
		return
	}

	action := "student_record_created"
	body := "Hello " + saved.Name + ", your student record (roll " + saved.RollNo + ") was added by staff."
	if d.mode == ModeEdit {
		action = "student_record_updated"
		body = "Hello " + saved.Name + ", your student record (roll " + saved.RollNo + ") was updated by staff."
	}

	req := upstream.NotificationRequest{
		Email: saved.Email,
		Title: "Your student profile has been added/updated",
		Body:  body,
		Meta:  map[string]any{"studentId": saved.ID, "action": action},
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := client.SendNotification(ctx, req); err != nil {
			slog.Warn("post-save notification failed", "email", req.Email, "error", err)
		}
	}()
}

// FailureMessage reduces any submission failure to the single message the
// wizard surfaces, preferring what the server reported.
func FailureMessage(err error) string {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Save failed"
}
