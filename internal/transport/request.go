package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/logging"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 2048

// DecodeResponse decodes a JSON response into target. Any 2xx status is
// success; an empty body or a nil target skips decoding.
func DecodeResponse(system, endpoint string, resp *http.Response, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Str("system", system).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &errors.APIError{
			System:     system,
			StatusCode: resp.StatusCode,
			Message:    msg,
			Endpoint:   endpoint,
		}
	}

	if target == nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", endpoint, err)
	}
	return nil
}
