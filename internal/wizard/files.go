package wizard

import (
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	// Decoders for the formats staff actually upload.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"hostel-portal/pkg/apierror"
)

// attachmentFields is the closed set of document slots on a record.
var attachmentFields = []string{"aadharFront", "aadharBack", "photo", "additional"}

const previewWidth = 160

// Attachment is an uploaded file staged on disk until the draft submits
// or closes. PreviewPath is empty for non-image uploads.
type Attachment struct {
	Field       string `json:"field"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	Path        string `json:"-"`
	PreviewPath string `json:"previewPath,omitempty"`
}

// AttachFile stages an upload into one of the document slots. A second
// upload to the same slot supersedes the first and releases its files.
func (d *Draft) AttachFile(field string, name string, r io.Reader) (*Attachment, error) {
	if !validAttachmentField(field) {
		return nil, apierror.BadRequest("unknown attachment field", field)
	}

	dir := filepath.Join(d.previewRoot, d.id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apierror.New("ATTACHMENT_STORE_FAILED", "could not stage the uploaded file", "", 500)
	}

	stem := field + "_" + uuid.NewString()
	dst := filepath.Join(dir, stem+filepath.Ext(name))
	f, err := os.Create(dst)
	if err != nil {
		return nil, apierror.New("ATTACHMENT_STORE_FAILED", "could not stage the uploaded file", "", 500)
	}
	size, err := io.Copy(f, r)
	f.Close()
	if err != nil {
		os.Remove(dst)
		return nil, apierror.New("ATTACHMENT_STORE_FAILED", "could not stage the uploaded file", "", 500)
	}

	att := &Attachment{Field: field, Name: name, Size: size, Path: dst}
	if preview, err := renderPreview(dst, filepath.Join(dir, stem+"_preview.jpg")); err == nil {
		att.PreviewPath = preview
	}

	d.mu.Lock()
	if prev, ok := d.files[field]; ok {
		prev.release()
	}
	d.files[field] = att
	d.mu.Unlock()

	return att, nil
}

// RemoveFile clears a document slot and releases its staged files.
func (d *Draft) RemoveFile(field string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if att, ok := d.files[field]; ok {
		att.release()
		delete(d.files, field)
	}
}

// Attachments lists the staged uploads in slot order.
func (d *Draft) Attachments() []*Attachment {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*Attachment, 0, len(d.files))
	for _, field := range attachmentFields {
		if att, ok := d.files[field]; ok {
			out = append(out, att)
		}
	}
	return out
}

// releaseFiles drops every staged upload. Called when the draft closes so
// abandoned wizards never leak staged files.
func (d *Draft) releaseFiles() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for field, att := range d.files {
		att.release()
		delete(d.files, field)
	}
	os.Remove(filepath.Join(d.previewRoot, d.id))
}

func (a *Attachment) release() {
	os.Remove(a.Path)
	if a.PreviewPath != "" {
		os.Remove(a.PreviewPath)
	}
}

func validAttachmentField(field string) bool {
	for _, f := range attachmentFields {
		if f == field {
			return true
		}
	}
	return false
}

// renderPreview decodes an uploaded image and writes a small jpeg
// thumbnail next to it. Non-image uploads are not an error, they simply
// get no preview.
func renderPreview(srcPath string, dstPath string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return "", err
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return "", image.ErrFormat
	}

	width := previewWidth
	if bounds.Dx() < width {
		width = bounds.Dx()
	}
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}

	thumb := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(thumb, thumb.Bounds(), img, bounds, draw.Over, nil)

	out, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 80}); err != nil {
		os.Remove(dstPath)
		return "", err
	}

	return dstPath, nil
}
