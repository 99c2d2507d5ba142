package upstream

import (
	"context"

	"hostel-portal/internal/model"
)

func (c *Client) ListStudents(ctx context.Context) ([]model.StudentRecord, error) {
	var students []model.StudentRecord
	if err := c.get(ctx, "/api/students", &students); err != nil {
		return nil, err
	}
	return students, nil
}

// GetStudent returns the raw record shape so the wizard's reconcile step
// can deal with fields that arrive in variable forms (nested addresses as
// objects or as serialized text).
func (c *Client) GetStudent(ctx context.Context, id string) (map[string]any, error) {
	var raw map[string]any
	if err := c.get(ctx, "/api/students/"+id, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) CreateStudent(ctx context.Context, form *Form) (model.StudentRecord, error) {
	var saved model.StudentRecord
	err := c.postForm(ctx, "/api/students", form, &saved)
	return saved, err
}

func (c *Client) UpdateStudent(ctx context.Context, id string, form *Form) (model.StudentRecord, error) {
	var saved model.StudentRecord
	err := c.putForm(ctx, "/api/students/"+id, form, &saved)
	return saved, err
}

func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/students/"+id)
}
