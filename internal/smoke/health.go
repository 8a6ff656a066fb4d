package smoke

import (
	"context"
	"fmt"
	"net/http"
)

// HealthSuite checks GET /api/health.
func HealthSuite() Suite {
	return Suite{
		Name: "health",
		Checks: []Check{
			{Name: "health_check", Run: checkHealth},
		},
	}
}

// checkHealth requires the status object with a true server flag. Database and
// mail reachability depend on the deployment, so only their type is checked.
func checkHealth(ctx context.Context, f *Fixture) error {
	c, err := f.Client()
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, http.MethodGet, "/api/health", nil, nil)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}

	body, err := decodeObject(resp.Body)
	if err != nil {
		return err
	}
	status, ok := body["status"].(map[string]any)
	if !ok {
		return fmt.Errorf("response has no \"status\" object")
	}
	if err := requireKeys(status, "server", "database", "email_server"); err != nil {
		return err
	}

	server, err := requireBool(status, "server")
	if err != nil {
		return err
	}
	if !server {
		return fmt.Errorf("status.server = false, want true")
	}
	if _, err := requireBool(status, "database"); err != nil {
		return err
	}
	_, err = requireBool(status, "email_server")
	return err
}
