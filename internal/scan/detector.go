package scan

import (
	"context"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRDetector decodes QR codes from frames. A frame with no decodable
// code returns the library's not-found error, which the session treats
// as an empty tick.
type QRDetector struct {
	reader gozxing.Reader
}

func NewQRDetector() *QRDetector {
	return &QRDetector{reader: qrcode.NewQRCodeReader()}
}

func (d *QRDetector) Detect(ctx context.Context, frame image.Image) ([]string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(frame)
	if err != nil {
		return nil, err
	}
	result, err := d.reader.Decode(bmp, nil)
	if err != nil {
		return nil, err
	}
	return []string{result.GetText()}, nil
}
