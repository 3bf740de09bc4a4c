package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
)

// DecodeResponse decodes a JSON response into the target structure and
// checks the envelope status when target implements Envelope.
func DecodeResponse(resp *http.Response, service string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapTransient(errors.WrapIO("read", "response body", err))
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &errors.APIError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), 512),
		}
		if resp.Request != nil && resp.Request.URL != nil {
			apiErr.Endpoint = resp.Request.URL.String()
		}
		return apiErr
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	if env, ok := target.(Envelope); ok {
		return env.Err()
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
