package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseHTTPSuite struct {
	suite.Suite
	Config Config
	client *http.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.CourierAddr == "" {
		s.T().Skip("E2E_COURIER_ADDR not set, skipping end-to-end suite")
	}
	s.client = &http.Client{Timeout: 60 * time.Second}
}

func (s *BaseHTTPSuite) Header(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Do sends a request with requester authentication, logs timing and
// optionally the JSON bodies, and decodes the response into out.
func (s *BaseHTTPSuite) Do(method, path string, body io.Reader, contentType string, out any) *http.Response {
	req, err := http.NewRequest(method, s.Config.CourierAddr+path, body)
	s.Require().NoError(err)
	req.Header.Set("X-Requester", s.Config.Requester)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	logBuilder := strings.Builder{}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		fmt.Fprintln(&logBuilder, "\nRESPONSE:")
		fmt.Fprintln(&logBuilder, string(data))
	}
	s.T().Log(logBuilder.String())

	if out != nil {
		s.Require().NoError(json.Unmarshal(data, out))
	}
	return resp
}

// Upload posts a file through the multipart submission endpoint.
func (s *BaseHTTPSuite) Upload(name string, payload []byte, out any) *http.Response {
	buffer := &bytes.Buffer{}
	writer := multipart.NewWriter(buffer)
	part, err := writer.CreateFormFile("file", name)
	s.Require().NoError(err)
	_, err = part.Write(payload)
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	return s.Do(http.MethodPost, "/transfers", buffer, writer.FormDataContentType(), out)
}

// Eventually polls the status endpoint until the predicate passes.
func (s *BaseHTTPSuite) EventuallyStatus(t *testing.T, jobID string, predicate func(status string) bool) {
	s.Require().Eventually(func() bool {
		var body struct {
			Status string `json:"status"`
		}
		resp := s.Do(http.MethodGet, "/transfers/"+jobID+"/status", nil, "", &body)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		return predicate(body.Status)
	}, 2*time.Minute, time.Second)
}
