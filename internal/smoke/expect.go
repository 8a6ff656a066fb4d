package smoke

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aichatbot/chatbot-api/internal/apiclient"
)

func expectStatus(resp *apiclient.Response, want int) error {
	if resp.StatusCode != want {
		return fmt.Errorf("status = %d, want %d: %s", resp.StatusCode, want, truncate(string(resp.Body), 200))
	}
	return nil
}

// expectAPIError requires err to be an API answer with the given status.
func expectAPIError(err error, want int) error {
	if err == nil {
		return fmt.Errorf("request succeeded, want %d %s", want, http.StatusText(want))
	}
	if got := apiclient.StatusCode(err); got != want {
		if got == 0 {
			return err
		}
		return fmt.Errorf("status = %d, want %d: %w", got, want, err)
	}
	return nil
}

func decodeObject(body []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	return obj, nil
}

func requireKeys(obj map[string]any, keys ...string) error {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return fmt.Errorf("response has no %q field", k)
		}
	}
	return nil
}

func requireBool(obj map[string]any, key string) (bool, error) {
	v, ok := obj[key].(bool)
	if !ok {
		return false, fmt.Errorf("%q = %v, want a boolean", key, obj[key])
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
