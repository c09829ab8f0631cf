package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// DefaultServiceName is the unit installed for the appliance.
const DefaultServiceName = "iss-notify.service"

// Manager handles systemd service lifecycle operations via D-Bus.
type Manager struct {
	conn *dbus.Conn
}

// NewManager connects to the system bus, or to the user bus when user is set.
func NewManager(ctx context.Context, user bool) (*Manager, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	if user {
		conn, err = dbus.NewUserConnectionContext(ctx)
	} else {
		conn, err = dbus.NewSystemConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return &Manager{conn: conn}, nil
}

// ServiceStatus retrieves the ActiveState property of a systemd service.
func (m *Manager) ServiceStatus(ctx context.Context, serviceName string) (string, error) {
	prop, err := m.conn.GetUnitPropertyContext(ctx, serviceName, "ActiveState")
	if err != nil {
		return "", err
	}
	state, ok := prop.Value.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected ActiveState %s for %s", prop.Value.String(), serviceName)
	}
	return state, nil
}

// RestartService restarts a systemd service and waits for the job to finish.
func (m *Manager) RestartService(ctx context.Context, serviceName string) error {
	done := make(chan string, 1)
	if _, err := m.conn.RestartUnitContext(ctx, serviceName, "replace", done); err != nil {
		return fmt.Errorf("failed to restart %s: %w", serviceName, err)
	}

	select {
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("restart of %s finished with %q", serviceName, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cleanly closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}
