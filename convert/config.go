package convert

import "time"

// Config defines the settings of the remote image to 3D conversion service
type Config struct {
	URL            string `json:"URL"`            // POST endpoint, e.g. http://gpu-box:8080/convert
	TimeoutSeconds int    `json:"TimeoutSeconds"` // inference can take minutes
	MaxImageSide   int    `json:"MaxImageSide"`   // longer images are downscaled before upload, 0 disables
}

// DefaultConfig returns the settings used if nothing is configured
func DefaultConfig() Config {
	return Config{
		URL:            "http://localhost:8080/convert",
		TimeoutSeconds: 300,
		MaxImageSide:   1024,
	}
}

// Timeout returns the request timeout as duration
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
