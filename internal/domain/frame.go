package domain

import "encoding/base64"

// Frame is one encoded still taken from the selected video source.
// It lives for a single capture tick.
type Frame struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// DataURL renders the frame in the form the analysis backend expects on video_frame.
func (f Frame) DataURL() string {
	return "data:" + f.MimeType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}
