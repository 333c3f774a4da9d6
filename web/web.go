// Package web holds the preview pages served by the service
package web

import "embed"

// Files contains the model page (index.html), the image page (image.html)
// and the script shared by both.
//
//go:embed index.html image.html viewer.js
var Files embed.FS
