package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-portal/internal/model"
	"hostel-portal/internal/upstream"
	"hostel-portal/pkg/apierror"
)

type fakeSubmitClient struct {
	created  *upstream.Form
	updated  *upstream.Form
	updateID string
	saveErr  error
	notified chan upstream.NotificationRequest
}

func newFakeSubmitClient() *fakeSubmitClient {
	return &fakeSubmitClient{notified: make(chan upstream.NotificationRequest, 1)}
}

func (c *fakeSubmitClient) CreateStudent(_ context.Context, form *upstream.Form) (model.StudentRecord, error) {
	c.created = form
	if c.saveErr != nil {
		return model.StudentRecord{}, c.saveErr
	}
	fields := form.Fields()
	return model.StudentRecord{ID: "rec-1", Name: fields["name"], Email: fields["email"], RollNo: fields["rollNo"]}, nil
}

func (c *fakeSubmitClient) UpdateStudent(_ context.Context, id string, form *upstream.Form) (model.StudentRecord, error) {
	c.updateID = id
	c.updated = form
	if c.saveErr != nil {
		return model.StudentRecord{}, c.saveErr
	}
	fields := form.Fields()
	return model.StudentRecord{ID: id, Name: fields["name"], Email: fields["email"], RollNo: fields["rollNo"]}, nil
}

func (c *fakeSubmitClient) SendNotification(_ context.Context, req upstream.NotificationRequest) error {
	c.notified <- req
	return nil
}

func waitNotification(t *testing.T, c *fakeSubmitClient) upstream.NotificationRequest {
	t.Helper()
	select {
	case req := <-c.notified:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("no notification dispatched")
		return upstream.NotificationRequest{}
	}
}

func TestDraft_StepClamping(t *testing.T) {
	d := NewStore(t.TempDir()).StartCreate()

	assert.Equal(t, StepPersonal, d.Step())
	assert.Equal(t, StepPersonal, d.Back())

	for i := 0; i < 10; i++ {
		d.Next()
	}
	assert.Equal(t, lastStep, d.Step())

	assert.Equal(t, lastStep-1, d.Back())
}

func TestDraft_DottedFieldRouting(t *testing.T) {
	d := NewStore(t.TempDir()).StartCreate()

	require.NoError(t, d.SetField("name", "Asha Rao"))
	require.NoError(t, d.SetField("residentialAddress.line1", "12 MG Road"))
	require.NoError(t, d.SetField("residentialAddress.pincode", "560001"))
	require.NoError(t, d.SetField("permanentAddress.district", "Mysuru"))

	f := d.Fields()
	assert.Equal(t, "Asha Rao", f.Name)
	assert.Equal(t, "12 MG Road", f.Residential.Line1)
	assert.Equal(t, "560001", f.Residential.Pincode)
	assert.Equal(t, "Mysuru", f.Permanent.District)

	err := d.SetField("residentialAddress.street", "x")
	require.Error(t, err)
	err = d.SetField("nickname", "x")
	require.Error(t, err)
}

func TestDraft_SameAddressMirroring(t *testing.T) {
	d := NewStore(t.TempDir()).StartCreate()

	require.NoError(t, d.SetField("residentialAddress.line1", "12 MG Road"))
	require.NoError(t, d.SetField("permanentAddress.line1", "old village"))

	// Enabling the toggle copies residential over permanent.
	d.SetSameAddress(true)
	f := d.Fields()
	assert.Equal(t, "12 MG Road", f.Permanent.Line1)

	// While on, residential edits mirror and permanent edits are rejected.
	require.NoError(t, d.SetField("residentialAddress.district", "Bengaluru"))
	assert.Equal(t, "Bengaluru", d.Fields().Permanent.District)

	err := d.SetField("permanentAddress.line1", "direct edit")
	require.Error(t, err)
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.HTTPStatus)

	// Turning it off frees the permanent address again.
	d.SetSameAddress(false)
	require.NoError(t, d.SetField("permanentAddress.line1", "independent"))
	assert.Equal(t, "independent", d.Fields().Permanent.Line1)
	assert.Equal(t, "12 MG Road", d.Fields().Residential.Line1)
}

func TestDraft_ValidateBlocksSubmitLocally(t *testing.T) {
	d := NewStore(t.TempDir()).StartCreate()
	require.NoError(t, d.SetField("name", "Asha Rao"))

	client := newFakeSubmitClient()
	_, err := d.Submit(context.Background(), client)

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.Code)
	assert.Contains(t, apiErr.Details, "email")
	assert.Contains(t, apiErr.Details, "rollNo")
	assert.NotContains(t, apiErr.Details, "name")

	// Nothing left the process.
	assert.Nil(t, client.created)
	assert.Nil(t, client.updated)
}

func TestDraft_SubmitCreateNotifies(t *testing.T) {
	d := NewStore(t.TempDir()).StartCreate()
	require.NoError(t, d.SetField("name", "Asha Rao"))
	require.NoError(t, d.SetField("email", "asha@example.com"))
	require.NoError(t, d.SetField("rollNo", "H-204"))

	client := newFakeSubmitClient()
	saved, err := d.Submit(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", saved.ID)
	require.NotNil(t, client.created)

	req := waitNotification(t, client)
	assert.Equal(t, "asha@example.com", req.Email)
	assert.Equal(t, "Your student profile has been added/updated", req.Title)
	assert.Contains(t, req.Body, "roll H-204")
	assert.Equal(t, "student_record_created", req.Meta["action"])
}

func TestDraft_SubmitEditUpdatesAndNotifies(t *testing.T) {
	store := NewStore(t.TempDir())
	d := store.StartEdit("rec-9", map[string]any{
		"name":   "Asha Rao",
		"email":  "asha@example.com",
		"rollNo": "H-204",
	})

	client := newFakeSubmitClient()
	saved, err := d.Submit(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, "rec-9", saved.ID)
	assert.Equal(t, "rec-9", client.updateID)
	assert.Nil(t, client.created)

	req := waitNotification(t, client)
	assert.Equal(t, "student_record_updated", req.Meta["action"])
	assert.Contains(t, req.Body, "was updated by staff")
}

func TestDraft_SubmitFailureSkipsNotification(t *testing.T) {
	d := NewStore(t.TempDir()).StartCreate()
	require.NoError(t, d.SetField("name", "Asha Rao"))
	require.NoError(t, d.SetField("email", "asha@example.com"))
	require.NoError(t, d.SetField("rollNo", "H-204"))

	client := newFakeSubmitClient()
	client.saveErr = apierror.Upstream(409, "roll number already exists")

	_, err := d.Submit(context.Background(), client)
	require.Error(t, err)
	assert.Equal(t, "roll number already exists", FailureMessage(err))

	select {
	case <-client.notified:
		t.Fatal("notification dispatched for a failed save")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFailureMessage_Fallback(t *testing.T) {
	assert.Equal(t, "Save failed", FailureMessage(errors.New("dial tcp: refused")))
	assert.Equal(t, "record not found", FailureMessage(apierror.NotFound("record not found", "")))
}

func TestReconcile_AddressShapes(t *testing.T) {
	resJSON, err := json.Marshal(model.Address{Line1: "12 MG Road", District: "Bengaluru"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		raw      map[string]any
		wantRes  model.Address
		wantRaw  string
		wantSame bool
	}{
		{
			name: "object addresses equal",
			raw: map[string]any{
				"residentialAddress": map[string]any{"line1": "12 MG Road"},
				"permanentAddress":   map[string]any{"line1": "12 MG Road"},
			},
			wantRes:  model.Address{Line1: "12 MG Road"},
			wantSame: true,
		},
		{
			name: "object addresses differ",
			raw: map[string]any{
				"residentialAddress": map[string]any{"line1": "12 MG Road"},
				"permanentAddress":   map[string]any{"line1": "old village"},
			},
			wantRes:  model.Address{Line1: "12 MG Road"},
			wantSame: false,
		},
		{
			name: "serialized address parses",
			raw: map[string]any{
				"residentialAddress": string(resJSON),
			},
			wantRes:  model.Address{Line1: "12 MG Road", District: "Bengaluru"},
			wantSame: false,
		},
		{
			name:     "missing addresses count as equal",
			raw:      map[string]any{"name": "Asha Rao"},
			wantSame: true,
		},
		{
			name: "unparseable string kept raw",
			raw: map[string]any{
				"residentialAddress": "12 MG Road, Bengaluru 560001",
				"permanentAddress":   "12 MG Road, Bengaluru 560001",
			},
			wantRaw:  "12 MG Road, Bengaluru 560001",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, same := Reconcile(tt.raw)
			assert.Equal(t, tt.wantRes, fields.Residential)
			assert.Equal(t, tt.wantRaw, fields.ResidentialRaw)
			assert.Equal(t, tt.wantSame, same)
		})
	}
}

func TestReconcile_ScalarCoercion(t *testing.T) {
	fields, _ := Reconcile(map[string]any{
		"name":       "Asha Rao",
		"rollNo":     float64(204),
		"mealsOptIn": true,
	})

	assert.Equal(t, "Asha Rao", fields.Name)
	assert.Equal(t, "204", fields.RollNo)
	assert.Equal(t, "yes", fields.MealsOptIn)
}

func TestStore_CloseDiscardsDraft(t *testing.T) {
	store := NewStore(t.TempDir())
	d := store.StartCreate()

	got, err := store.Get(d.ID())
	require.NoError(t, err)
	assert.Same(t, d, got)

	store.Close(d.ID())
	_, err = store.Get(d.ID())
	assert.ErrorIs(t, err, model.ErrDraftNotFound)
}

func TestStore_ScheduleClose(t *testing.T) {
	store := NewStore(t.TempDir())
	d := store.StartCreate()

	store.ScheduleClose(d.ID(), 20*time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := store.Get(d.ID())
		return errors.Is(err, model.ErrDraftNotFound)
	}, time.Second, 10*time.Millisecond)
}
