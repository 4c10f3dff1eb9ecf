package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const imgurUploadURL = "https://api.imgur.com/3/image"

// ImgurParams ...
type ImgurParams struct {
	AccessToken string
}

// Imgur uploads images to the Imgur API. The API offers no way to check
// whether an image is already hosted, so the override flag is accepted but
// every call performs the upload.
type Imgur struct {
	httpClient  *retryablehttp.Client
	uploadURL   string
	accessToken string
	logger      log.Logger
}

func NewImgur(params ImgurParams, logger log.Logger) (*Imgur, error) {
	if params.AccessToken == "" {
		return nil, fmt.Errorf("%w: imgur access token must not be empty", ErrInvalidConfiguration)
	}

	httpClient := retryhttp.NewClient(logger)
	// a transient failure is terminal for the document, transfers are not retried
	httpClient.RetryMax = 0

	return &Imgur{
		httpClient:  httpClient,
		uploadURL:   imgurUploadURL,
		accessToken: params.AccessToken,
		logger:      logger,
	}, nil
}

type imgurUploadResponse struct {
	Data struct {
		Link string `json:"link"`
	} `json:"data"`
}

// Upload posts the image as multipart form data and returns the hosted link.
func (u *Imgur) Upload(ctx context.Context, localPath string, override bool) (string, error) {
	body, contentType, err := multipartBody(localPath)
	if err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, u.uploadURL, body)
	if err != nil {
		return "", err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", u.accessToken))
	req.Header.Set("Content-Type", contentType)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: fmt.Sprintf("upload %s", filepath.Base(localPath)), Err: err}
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			u.logger.Printf(err.Error())
		}
	}(resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &TransportError{Op: fmt.Sprintf("upload %s", filepath.Base(localPath)), Err: unwrapError(resp)}
	}

	var response imgurUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", err
	}
	return response.Data.Link, nil
}

func multipartBody(localPath string) ([]byte, string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer file.Close() //nolint:errcheck

	buf := bytes.Buffer{}
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filepath.Base(localPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

func unwrapError(resp *http.Response) error {
	errorResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorResp)
}
