package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Camera is a FrameSource backed by a local video capture device.
type Camera struct {
	mu  sync.Mutex
	cap *gocv.VideoCapture
	mat gocv.Mat
}

// OpenCamera acquires a capture device. Acquisition failures surface as
// ErrPermissionDenied so callers can degrade to manual QR viewing.
func OpenCamera(device int) (*Camera, error) {
	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: opening device %d: %v", ErrPermissionDenied, device, err)
	}
	return &Camera{cap: cap, mat: gocv.NewMat()}, nil
}

func (c *Camera) Frame(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cap == nil {
		return nil, errors.New("camera closed")
	}
	if ok := c.cap.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, errors.New("no frame available")
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}
	return img, nil
}

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cap == nil {
		return nil
	}
	_ = c.mat.Close()
	err := c.cap.Close()
	c.cap = nil
	return err
}
