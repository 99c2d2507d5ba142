package wizard

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-portal/internal/model"
)

func TestBuildForm_OmitsEmptyFields(t *testing.T) {
	d := NewStore(t.TempDir()).StartCreate()
	require.NoError(t, d.SetField("name", "Asha Rao"))
	require.NoError(t, d.SetField("email", "asha@example.com"))
	require.NoError(t, d.SetField("rollNo", "H-204"))
	require.NoError(t, d.SetField("guardianName", "   "))

	form, closeParts, err := d.BuildForm()
	require.NoError(t, err)
	defer closeParts()

	fields := form.Fields()
	assert.Equal(t, map[string]string{
		"name":   "Asha Rao",
		"email":  "asha@example.com",
		"rollNo": "H-204",
	}, fields)
	assert.Empty(t, form.FileFields())
}

func TestBuildForm_SerializesAddresses(t *testing.T) {
	d := NewStore(t.TempDir()).StartCreate()
	require.NoError(t, d.SetField("name", "Asha Rao"))
	require.NoError(t, d.SetField("residentialAddress.line1", "12 MG Road"))
	require.NoError(t, d.SetField("residentialAddress.pincode", "560001"))

	form, closeParts, err := d.BuildForm()
	require.NoError(t, err)
	defer closeParts()

	fields := form.Fields()
	require.Contains(t, fields, "residentialAddress")
	assert.NotContains(t, fields, "permanentAddress")

	var addr model.Address
	require.NoError(t, json.Unmarshal([]byte(fields["residentialAddress"]), &addr))
	assert.Equal(t, "12 MG Road", addr.Line1)
	assert.Equal(t, "560001", addr.Pincode)
}

func TestBuildForm_RawAddressPassesThroughVerbatim(t *testing.T) {
	store := NewStore(t.TempDir())
	d := store.StartEdit("rec-1", map[string]any{
		"name":               "Asha Rao",
		"residentialAddress": "12 MG Road, Bengaluru 560001",
	})

	form, closeParts, err := d.BuildForm()
	require.NoError(t, err)
	defer closeParts()

	assert.Equal(t, "12 MG Road, Bengaluru 560001", form.Fields()["residentialAddress"])
}

func TestBuildForm_IncludesStagedAttachments(t *testing.T) {
	d := NewStore(t.TempDir()).StartCreate()
	require.NoError(t, d.SetField("name", "Asha Rao"))

	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	att, err := d.AttachFile("photo", "asha.png", &buf)
	require.NoError(t, err)
	assert.NotEmpty(t, att.PreviewPath)

	_, err = d.AttachFile("signature", "x.txt", bytes.NewBufferString("x"))
	require.Error(t, err)

	form, closeParts, err := d.BuildForm()
	require.NoError(t, err)
	defer closeParts()

	assert.Equal(t, []string{"photo"}, form.FileFields())
}

func TestAttachFile_SupersedesPreviousUpload(t *testing.T) {
	d := NewStore(t.TempDir()).StartCreate()

	_, err := d.AttachFile("additional", "first.txt", bytes.NewBufferString("first"))
	require.NoError(t, err)
	second, err := d.AttachFile("additional", "second.txt", bytes.NewBufferString("second"))
	require.NoError(t, err)

	atts := d.Attachments()
	require.Len(t, atts, 1)
	assert.Equal(t, second, atts[0])
	assert.Equal(t, "second.txt", atts[0].Name)
	// Text uploads get no preview.
	assert.Empty(t, atts[0].PreviewPath)
}
