package manager

import (
	"github.com/meshcore/mesh-go/pkg/bearer"
	"github.com/meshcore/mesh-go/pkg/log"
	"github.com/meshcore/mesh-go/pkg/provisioning"
)

// BeginProvisioning starts a provisioner-role handshake against an
// unprovisioned device by sending Invite over the Provisioning bearer
// (spec.md §4.H). chooseAuth is called once the device's Capabilities
// arrive and selects the public-key/authentication method; data carries
// the NetKey, subnet index, and unicast address to hand the device once
// the handshake reaches that step. onComplete/onFailed are terminal
// callbacks, posted through Notify like Delegate's.
func (m *Manager) BeginProvisioning(
	attentionSec uint8,
	data provisioning.ProvisioningData,
	chooseAuth func(provisioning.CapabilitiesMessage) (provisioning.AuthChoice, error),
	onComplete func(deviceKey []byte, data provisioning.ProvisioningData),
	onFailed func(err error),
) error {
	m.mu.Lock()
	if m.prov != nil {
		m.mu.Unlock()
		return ErrProvisioningBusy
	}

	fsm := provisioning.NewFSM(
		chooseAuth,
		func(payload []byte) {
			if err := m.bearer.Send(payload, bearer.PduTypeProvisioning); err != nil {
				m.logError(log.LayerProvisioning, "send provisioning pdu", err)
			}
		},
		func(deviceKey []byte, pd provisioning.ProvisioningData) {
			m.mu.Lock()
			m.prov = nil
			m.mu.Unlock()
			m.notify(func() { onComplete(deviceKey, pd) })
		},
		func(err error) {
			m.mu.Lock()
			m.prov = nil
			m.mu.Unlock()
			m.notify(func() { onFailed(err) })
		},
	)
	fsm.SetProvisioningData(data)
	m.prov = fsm
	m.mu.Unlock()

	return fsm.Invite(attentionSec)
}

// ProvisioningState returns the active provisioning session's state, and
// false if none is in progress.
func (m *Manager) ProvisioningState() (provisioning.State, bool) {
	m.mu.Lock()
	fsm := m.prov
	m.mu.Unlock()
	if fsm == nil {
		return 0, false
	}
	return fsm.State(), true
}

// CancelProvisioning abandons the active provisioning session, if any,
// without invoking onFailed.
func (m *Manager) CancelProvisioning() {
	m.mu.Lock()
	m.prov = nil
	m.mu.Unlock()
}
