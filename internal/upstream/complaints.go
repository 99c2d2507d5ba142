package upstream

import (
	"context"

	"hostel-portal/internal/model"
)

func (c *Client) ListStaffComplaints(ctx context.Context) ([]model.Complaint, error) {
	var complaints []model.Complaint
	if err := c.get(ctx, "/api/staff/complaints", &complaints); err != nil {
		return nil, err
	}
	return complaints, nil
}

// GetStaffComplaint re-fetches a single complaint so attachment URLs are
// freshly signed.
func (c *Client) GetStaffComplaint(ctx context.Context, id string) (model.Complaint, error) {
	var complaint model.Complaint
	err := c.get(ctx, "/api/staff/complaints/"+id, &complaint)
	return complaint, err
}

func (c *Client) CreateStaffComplaint(ctx context.Context, form *Form) (model.Complaint, error) {
	var created model.Complaint
	err := c.postForm(ctx, "/api/staff/complaints", form, &created)
	return created, err
}

func (c *Client) ResolveStaffComplaint(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/staff/complaints/"+id+"/resolve", nil, nil)
}

func (c *Client) ListMyComplaints(ctx context.Context) ([]model.Complaint, error) {
	var complaints []model.Complaint
	if err := c.get(ctx, "/api/complaints", &complaints); err != nil {
		return nil, err
	}
	return complaints, nil
}

func (c *Client) CreateMyComplaint(ctx context.Context, form *Form) (model.Complaint, error) {
	var created model.Complaint
	err := c.postForm(ctx, "/api/complaints", form, &created)
	return created, err
}
