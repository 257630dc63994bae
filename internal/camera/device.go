// Package camera owns camera access for the kiosk.
//
// A Device is a frame source; the Controller enforces exclusive ownership of
// a device per UI surface. The kiosk ships two devices: SnapshotDevice pulls
// stills from an IP-camera HTTP endpoint, FileDevice replays image files from
// a directory for dev and tests.
package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Image is a single captured frame. It is consumed once (registration submit
// or recognition call) and not retained after use.
type Image struct {
	Data []byte
	MIME string
}

// Filename derives an upload filename matching the image's mime type.
func (i Image) Filename() string {
	switch i.MIME {
	case "image/png":
		return "capture.png"
	default:
		return "capture.jpg"
	}
}

// Device is a camera frame source.
//
// Implementations must guarantee:
//   - Open acquires the source or fails without holding anything
//   - Capture only works between Open and Close
//   - Close is idempotent
type Device interface {
	Open(ctx context.Context) error
	Capture(ctx context.Context) (Image, error)
	Close() error
}

// CapabilityError reports that the camera could not be acquired. It is
// non-fatal; a later Start may succeed.
type CapabilityError struct {
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("camera access denied/unavailable: %v", e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// SnapshotDevice captures stills from an HTTP endpoint that serves one image
// per GET, the transport used by IP cameras and the HORUS feed endpoints.
type SnapshotDevice struct {
	URL  string
	HTTP *http.Client

	mu   sync.Mutex
	open bool
}

// NewSnapshotDevice creates a device for the given snapshot URL.
func NewSnapshotDevice(url string, timeout time.Duration) *SnapshotDevice {
	return &SnapshotDevice{URL: url, HTTP: &http.Client{Timeout: timeout}}
}

// Open probes the endpoint once so acquisition failures surface at start
// rather than mid-pipeline.
func (d *SnapshotDevice) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil
	}
	if _, err := d.fetch(ctx); err != nil {
		return &CapabilityError{Err: err}
	}
	d.open = true
	return nil
}

// Capture grabs one still frame.
func (d *SnapshotDevice) Capture(ctx context.Context) (Image, error) {
	d.mu.Lock()
	open := d.open
	d.mu.Unlock()
	if !open {
		return Image{}, fmt.Errorf("camera not open")
	}
	return d.fetch(ctx)
}

// Close releases the device. Idempotent.
func (d *SnapshotDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}

func (d *SnapshotDevice) fetch(ctx context.Context) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return Image{}, err
	}
	resp, err := d.HTTP.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("snapshot fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Image{}, fmt.Errorf("snapshot endpoint returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Image{}, fmt.Errorf("snapshot read failed: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return Image{Data: data, MIME: mime}, nil
}

// FileDevice replays image files from a directory in name order, cycling
// back to the first when exhausted.
type FileDevice struct {
	Dir string

	mu    sync.Mutex
	files []string
	next  int
	open  bool
}

// NewFileDevice creates a device reading frames from dir.
func NewFileDevice(dir string) *FileDevice {
	return &FileDevice{Dir: dir}
}

// Open scans the directory for image files.
func (d *FileDevice) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil
	}
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return &CapabilityError{Err: err}
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(d.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return &CapabilityError{Err: fmt.Errorf("no image files in %s", d.Dir)}
	}
	sort.Strings(files)
	d.files = files
	d.next = 0
	d.open = true
	return nil
}

// Capture reads the next frame file.
func (d *FileDevice) Capture(ctx context.Context) (Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return Image{}, fmt.Errorf("camera not open")
	}
	path := d.files[d.next]
	d.next = (d.next + 1) % len(d.files)

	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("frame read failed: %w", err)
	}
	mime := "image/jpeg"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		mime = "image/png"
	}
	return Image{Data: data, MIME: mime}, nil
}

// Close releases the device. Idempotent.
func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.files = nil
	return nil
}
