// Package systemd talks to the service manager: readiness notifications
// over the notify socket and unit status over D-Bus.
package systemd

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
)

// ServiceName is the unit the daemon is installed as.
const ServiceName = "pinnode.service"

// UnitStatus is the part of a unit's state the admin API reports.
type UnitStatus struct {
	ActiveState string
	SubState    string
	MainPID     uint32
	// ActiveSince is zero when the unit is not active.
	ActiveSince time.Time
	NRestarts   uint32
}

// Manager reads unit properties via D-Bus.
type Manager struct {
	conn *dbus.Conn
}

// NewManager connects to the system bus, or the user bus when user is true.
func NewManager(ctx context.Context, user bool) (*Manager, error) {
	connect := dbus.NewSystemConnectionContext
	if user {
		connect = dbus.NewUserConnectionContext
	}
	conn, err := connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	return &Manager{conn: conn}, nil
}

// UnitStatus reads the unit and service properties of name in one call each.
func (m *Manager) UnitStatus(ctx context.Context, name string) (UnitStatus, error) {
	unit, err := m.conn.GetUnitPropertiesContext(ctx, name)
	if err != nil {
		return UnitStatus{}, fmt.Errorf("unit properties of %s: %w", name, err)
	}
	status := unitStatusFrom(unit)

	// Service-only properties are best effort
	if svc, err := m.conn.GetUnitTypePropertiesContext(ctx, name, "Service"); err == nil {
		status.MainPID, _ = svc["MainPID"].(uint32)
		status.NRestarts, _ = svc["NRestarts"].(uint32)
	}
	return status, nil
}

// unitStatusFrom picks the fields it knows from a D-Bus property map.
// ActiveEnterTimestamp is microseconds since the epoch.
func unitStatusFrom(props map[string]any) UnitStatus {
	var status UnitStatus
	status.ActiveState, _ = props["ActiveState"].(string)
	status.SubState, _ = props["SubState"].(string)
	if usec, ok := props["ActiveEnterTimestamp"].(uint64); ok && usec > 0 && status.ActiveState == "active" {
		status.ActiveSince = time.UnixMicro(int64(usec)).UTC()
	}
	return status
}

// Close cleanly closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}
