package audit

import (
	"fmt"
	"net"
)

// ValidateLoginEventPayload validates login event payload fields.
func ValidateLoginEventPayload(payload LoginEventPayload) error {
	if payload.UserID <= 0 {
		return fmt.Errorf("user_id is required")
	}
	if payload.LoggedInAt <= 0 {
		return fmt.Errorf("logged_in_at must be set")
	}
	if payload.IPAddress != "" && net.ParseIP(payload.IPAddress) == nil {
		return fmt.Errorf("ip address is malformed")
	}
	if len(payload.UserAgent) > maxUserAgentLength {
		return fmt.Errorf("user_agent too long")
	}
	return nil
}
