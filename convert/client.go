// Package convert is the connection layer to the remote image to 3D
// conversion service.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/roboticeyes/arpreview/asset"
	"github.com/roboticeyes/arpreview/event"
	"github.com/roboticeyes/arpreview/status"
	"github.com/tidwall/gjson"
)

var log = event.Log

// Result is the asset returned by the conversion service
type Result struct {
	Name        string
	ContentType string
	Data        []byte
}

// Health is the state reported by the service root
type Health struct {
	Status string `json:"status"`
	Device string `json:"device,omitempty"`
}

// Client sends images to the conversion service. The client should be
// created once and shared.
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new conversion client
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		config:     cfg,
	}
}

// Convert uploads the image and returns the generated GLB. Any failure of the
// service, either a non 2xx status or a JSON error payload, is returned as
// status. The request is never retried.
func (c *Client) Convert(ctx context.Context, fileName string, data []byte) (*Result, *status.Status) {

	prepared, err := PrepareImage(data, c.config.MaxImageSide)
	if err != nil {
		log.WithFields(event.Fields{
			"fileName": fileName,
		}).Debug("Rejecting upload: " + err.Error())
		return nil, status.NewStatus(nil, http.StatusBadRequest, "File "+fileName+" is not a supported image")
	}
	uploadName := fileName
	if prepared.Resized {
		uploadName = strings.TrimSuffix(fileName, filepath.Ext(fileName)) + ".png"
		log.WithFields(event.Fields{
			"fileName": fileName,
			"width":    prepared.Width,
			"height":   prepared.Height,
		}).Debug("Image got downscaled before upload")
	}

	body := &bytes.Buffer{}
	formContentType, err := writeForm(body, uploadName, prepared.Data)
	if err != nil {
		return nil, status.NewStatus(nil, http.StatusInternalServerError, "Can not upload file "+fileName)
	}

	responseBody, header, code, err := c.post(ctx, c.config.URL, body, formContentType)
	if err != nil {
		log.WithFields(event.Fields{
			"url":      c.config.URL,
			"fileName": fileName,
			"code":     code,
		}).Debug("Conversion failed: " + err.Error())
		return nil, status.NewStatus(responseBody, code, "Conversion of "+fileName+" failed")
	}

	contentType := header.Get("Content-Type")
	if isJSON(contentType) {
		// a JSON body on success is an error payload as well
		log.WithFields(event.Fields{
			"url":      c.config.URL,
			"fileName": fileName,
			"body":     string(responseBody),
		}).Debug("Conversion service returned JSON instead of a model")
		return nil, status.NewStatus(responseBody, http.StatusBadGateway, "Conversion of "+fileName+" failed")
	}

	name := fileNameFromHeader(header)
	if name == "" {
		name = asset.GLBName(fileName)
	}
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = asset.ContentTypeGLB
	}

	return &Result{
		Name:        asset.SanitizeName(name),
		ContentType: contentType,
		Data:        responseBody,
	}, nil
}

// Health queries the root of the conversion service
func (c *Client) Health(ctx context.Context) (Health, *status.Status) {
	root, err := url.Parse(c.config.URL)
	if err != nil {
		return Health{}, status.NewStatus(nil, http.StatusInternalServerError, "Invalid converter URL")
	}
	root.Path = "/"
	root.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, "GET", root.String(), nil)
	if err != nil {
		return Health{}, status.NewStatus(nil, http.StatusInternalServerError, "Invalid converter URL")
	}
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Health{}, status.NewStatus(nil, http.StatusBadGateway, "Conversion service is not reachable")
	}
	defer resp.Body.Close()

	body, _ := ioutil.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Health{}, status.NewStatus(body, resp.StatusCode, "Conversion service is not healthy")
	}

	res := gjson.ParseBytes(body)
	return Health{
		Status: res.Get("status").String(),
		Device: res.Get("device").String(),
	}, nil
}

// post performs a POST request to the given query, using the given payload as data, and the provided
// content-type. Transport errors are reported as 502.
// WARNING: Do NOT implement retries here. POST is not considered a safe nor idempotent HTTP method!
func (c *Client) post(ctx context.Context, query string, payload io.Reader, contentType string) ([]byte, http.Header, int, error) {

	req, err := http.NewRequestWithContext(ctx, "POST", query, payload)
	if err != nil {
		return nil, nil, http.StatusInternalServerError, err
	}
	req.Header.Add("Content-Type", contentType)
	req.Header.Add("Accept", asset.ContentTypeGLB+", application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithFields(event.Fields{
			"query":        query,
			"contentType":  contentType,
			"errorMessage": err.Error(),
		}).Debug("Internal POST request error")
		if ctx.Err() == context.DeadlineExceeded {
			return nil, nil, http.StatusGatewayTimeout, fmt.Errorf("Conversion request timed out")
		}
		return nil, nil, http.StatusBadGateway, err
	}

	// this is required to properly empty the buffer for the next call
	defer func() {
		io.Copy(ioutil.Discard, resp.Body)
		resp.Body.Close()
	}()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, http.StatusBadGateway, err
	}

	// Other error means outside the 2xx range
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithFields(event.Fields{
			"body": string(body),
		}).Debugf("Internal POST request did not return 2xx as expected but returned %d", resp.StatusCode)
		return body, resp.Header, resp.StatusCode, fmt.Errorf("Internal POST request failed")
	}

	// success
	return body, resp.Header, resp.StatusCode, nil
}

// writeForm writes data as multipart field "file" and returns the content
// type of the form
func writeForm(w io.Writer, fileName string, data []byte) (string, error) {
	writer := multipart.NewWriter(w)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return writer.FormDataContentType(), nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// fileNameFromHeader extracts the optional file name of the content-disposition
func fileNameFromHeader(header http.Header) string {
	contentDisposition := header.Get("Content-Disposition")
	if contentDisposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
