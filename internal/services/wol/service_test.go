package wol

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/fgeck/gowol/internal/models"
	"github.com/fgeck/gowol/internal/services/magicpacket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sendCall struct {
	payload     []byte
	destination string
	port        int
}

type mockBroadcaster struct {
	sendFunc func(payload []byte, destination string, port int) error
	calls    []sendCall
}

func (m *mockBroadcaster) Send(_ context.Context, payload []byte, destination string, port int) error {
	m.calls = append(m.calls, sendCall{payload: payload, destination: destination, port: port})
	if m.sendFunc != nil {
		return m.sendFunc(payload, destination, port)
	}
	return nil
}

type mockProber struct {
	// replies and errs are consumed one entry per Probe call.
	replies []bool
	errs    []error
	err     error
	calls   []models.ProbeConfig
}

func (m *mockProber) Probe(_ context.Context, cfg models.ProbeConfig) (*models.ProbeResult, error) {
	m.calls = append(m.calls, cfg)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	replied := false
	if len(m.replies) > 0 {
		replied = m.replies[0]
		m.replies = m.replies[1:]
	}
	return &models.ProbeResult{Replied: replied, Attempts: 1}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func boolPtr(b bool) *bool {
	return &b
}

var fullCaps = models.Capabilities{ARPAvailable: true, Privileged: true}

func checkConfig() models.WOLConfig {
	return models.WOLConfig{
		MACAddress:  "00:CA:FE:BA:BE:00",
		BroadcastIP: "192.168.1.255",
		Port:        9,
		CheckARP:    boolPtr(true),
		IP:          "192.168.1.50",
		Timeout:     30 * time.Second,
	}
}

func TestWake_NoCheck_AlwaysChanged(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	prober := &mockProber{replies: []bool{true, true}}

	// Capabilities must not matter when checking is disabled.
	for _, caps := range []models.Capabilities{{}, fullCaps} {
		broadcaster.calls = nil
		svc := NewWithServices(testLogger(), broadcaster, prober, caps)

		cfg := models.WOLConfig{
			MACAddress:  "00:CA:FE:BA:BE:00",
			BroadcastIP: "192.168.1.255",
			Port:        9,
			CheckARP:    boolPtr(false),
		}

		result, err := svc.Wake(context.Background(), cfg)

		require.NoError(t, err)
		assert.Nil(t, result.Error)
		assert.True(t, result.PacketSent)
		assert.True(t, result.Changed)
		assert.False(t, result.Checked)
		require.Len(t, broadcaster.calls, 1)

		want, _ := magicpacket.Build("00CAFEBABE00")
		assert.Equal(t, want, broadcaster.calls[0].payload)
		assert.Equal(t, "192.168.1.255", broadcaster.calls[0].destination)
		assert.Equal(t, 9, broadcaster.calls[0].port)
	}
	assert.Empty(t, prober.calls)
}

func TestWake_Defaults(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	svc := NewWithServices(testLogger(), broadcaster, &mockProber{}, models.Capabilities{})

	result, err := svc.Wake(context.Background(), models.WOLConfig{MACAddress: "00CAFEBABE00"})

	require.NoError(t, err)
	assert.True(t, result.Changed)
	require.Len(t, broadcaster.calls, 1)
	assert.Equal(t, models.DefaultBroadcastIP, broadcaster.calls[0].destination)
	assert.Equal(t, models.DefaultPort, broadcaster.calls[0].port)
}

func TestWake_CheckDefaultsToCapabilities(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	prober := &mockProber{replies: []bool{false, true}}
	svc := NewWithServices(testLogger(), broadcaster, prober, fullCaps)

	cfg := checkConfig()
	cfg.CheckARP = nil

	result, err := svc.Wake(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, result.Checked)
	assert.Len(t, prober.calls, 2)
}

func TestWake_InvalidMAC(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	svc := NewWithServices(testLogger(), broadcaster, &mockProber{}, fullCaps)

	cfg := checkConfig()
	cfg.MACAddress = "ZZ:CA:FE:BA:BE:00"

	result, err := svc.Wake(context.Background(), cfg)

	require.NoError(t, err)
	require.Error(t, result.Error)
	assert.ErrorIs(t, result.Error, models.ErrInvalidAddressFormat)
	assert.Contains(t, result.Error.Error(), "ZZ:CA:FE:BA:BE:00")
	assert.False(t, result.PacketSent)
	assert.Empty(t, broadcaster.calls)
}

func TestWake_CheckPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		caps    models.Capabilities
		ip      string
		wantErr error
		errMsg  string
	}{
		{
			name:    "capability missing",
			caps:    models.Capabilities{Privileged: true},
			ip:      "192.168.1.50",
			wantErr: models.ErrCapabilityMissing,
		},
		{
			name:    "capability checked before ip",
			caps:    models.Capabilities{},
			ip:      "",
			wantErr: models.ErrCapabilityMissing,
		},
		{
			name:    "missing ip",
			caps:    fullCaps,
			ip:      "",
			wantErr: models.ErrMissingParameter,
			errMsg:  "ip address is required",
		},
		{
			name:    "ipv6 ip",
			caps:    fullCaps,
			ip:      "fe80::1",
			wantErr: models.ErrInvalidParameter,
			errMsg:  "is not an IPv4 address",
		},
		{
			name:    "hostname checked before privilege",
			caps:    models.Capabilities{ARPAvailable: true},
			ip:      "nas.local",
			wantErr: models.ErrInvalidParameter,
		},
		{
			name:    "not root",
			caps:    models.Capabilities{ARPAvailable: true},
			ip:      "192.168.1.50",
			wantErr: models.ErrPrivilegeRequired,
			errMsg:  "only works as root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broadcaster := &mockBroadcaster{}
			prober := &mockProber{}
			svc := NewWithServices(testLogger(), broadcaster, prober, tt.caps)

			cfg := checkConfig()
			cfg.IP = tt.ip

			result, err := svc.Wake(context.Background(), cfg)

			require.NoError(t, err)
			assert.ErrorIs(t, result.Error, tt.wantErr)
			if tt.errMsg != "" {
				assert.Contains(t, result.Error.Error(), tt.errMsg)
			}
			assert.Empty(t, broadcaster.calls, "no packet may be sent")
			assert.Empty(t, prober.calls, "no probe may run")
		})
	}
}

func TestWake_Check_ComesUp(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	prober := &mockProber{replies: []bool{false, true}}
	svc := NewWithServices(testLogger(), broadcaster, prober, fullCaps)

	result, err := svc.Wake(context.Background(), checkConfig())

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.True(t, result.PacketSent)
	assert.True(t, result.Checked)
	assert.False(t, result.AwakeBefore)
	assert.True(t, result.AwakeAfter)
	assert.True(t, result.Changed)
	assert.Len(t, broadcaster.calls, 1)

	require.Len(t, prober.calls, 2)
	assert.Equal(t, preProbeTimeout, prober.calls[0].Timeout)
	assert.Equal(t, 30*time.Second, prober.calls[1].Timeout)
	assert.Equal(t, "192.168.1.50", prober.calls[1].IP)
	assert.Equal(t, "00:CA:FE:BA:BE:00", prober.calls[1].MACAddress)
}

func TestWake_Check_ZeroTimeoutIsKept(t *testing.T) {
	prober := &mockProber{replies: []bool{false, true}}
	svc := NewWithServices(testLogger(), &mockBroadcaster{}, prober, fullCaps)

	cfg := checkConfig()
	cfg.Timeout = 0

	result, err := svc.Wake(context.Background(), cfg)

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	require.Len(t, prober.calls, 2)
	assert.Equal(t, time.Duration(0), prober.calls[1].Timeout)
}

func TestWake_Check_NeverComesUp(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	prober := &mockProber{replies: []bool{false, false}}
	svc := NewWithServices(testLogger(), broadcaster, prober, fullCaps)

	result, err := svc.Wake(context.Background(), checkConfig())

	require.NoError(t, err)
	require.Error(t, result.Error)
	assert.ErrorIs(t, result.Error, models.ErrVerificationTimeout)
	assert.Contains(t, result.Error.Error(), "mac=00:CA:FE:BA:BE:00")
	assert.Contains(t, result.Error.Error(), "ip=192.168.1.50")
	assert.True(t, result.PacketSent)
	assert.False(t, result.Changed)
	assert.Len(t, broadcaster.calls, 1)
}

func TestWake_Check_AlreadyAwake(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	prober := &mockProber{replies: []bool{true}}
	svc := NewWithServices(testLogger(), broadcaster, prober, fullCaps)

	result, err := svc.Wake(context.Background(), checkConfig())

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.True(t, result.AwakeBefore)
	assert.False(t, result.Changed)
	assert.True(t, result.PacketSent, "packet is sent even when the target is up")
	assert.Len(t, broadcaster.calls, 1)
	assert.Len(t, prober.calls, 1)
}

func TestWake_SendFailed(t *testing.T) {
	broadcaster := &mockBroadcaster{
		sendFunc: func([]byte, string, int) error {
			return errors.Join(models.ErrNetwork, errors.New("sendto: network is unreachable"))
		},
	}
	prober := &mockProber{replies: []bool{false}}
	svc := NewWithServices(testLogger(), broadcaster, prober, fullCaps)

	result, err := svc.Wake(context.Background(), checkConfig())

	require.NoError(t, err)
	assert.ErrorIs(t, result.Error, models.ErrNetwork)
	assert.Contains(t, result.Error.Error(), "network is unreachable")
	assert.False(t, result.PacketSent)
	assert.False(t, result.Changed)
	assert.Len(t, prober.calls, 1, "no post probe after a failed send")
}

func TestWake_ProbeFailed(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	prober := &mockProber{err: errors.Join(models.ErrNetwork, errors.New("192.168.1.50 is reached via gateway 192.168.1.1"))}
	svc := NewWithServices(testLogger(), broadcaster, prober, fullCaps)

	result, err := svc.Wake(context.Background(), checkConfig())

	require.NoError(t, err)
	assert.Len(t, broadcaster.calls, 1, "packet is sent even when the pre-wake check fails")
	assert.True(t, result.PacketSent)
	assert.False(t, result.AwakeBefore)
	assert.False(t, result.Changed)
	assert.ErrorIs(t, result.Error, models.ErrNetwork)
	assert.Contains(t, result.Error.Error(), "via gateway")
	assert.Len(t, prober.calls, 2)
}

func TestWake_PreProbeFailed_TargetComesUp(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	prober := &mockProber{
		errs:    []error{errors.Join(models.ErrNetwork, errors.New("resource temporarily unavailable")), nil},
		replies: []bool{true},
	}
	svc := NewWithServices(testLogger(), broadcaster, prober, fullCaps)

	result, err := svc.Wake(context.Background(), checkConfig())

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.Len(t, broadcaster.calls, 1)
	assert.False(t, result.AwakeBefore)
	assert.True(t, result.AwakeAfter)
	assert.True(t, result.Changed)
}

func TestWake_InterfacePassedToProbe(t *testing.T) {
	prober := &mockProber{replies: []bool{true}}
	svc := NewWithServices(testLogger(), &mockBroadcaster{}, prober, fullCaps)

	cfg := checkConfig()
	cfg.Interface = "br0"

	_, err := svc.Wake(context.Background(), cfg)

	require.NoError(t, err)
	require.Len(t, prober.calls, 1)
	assert.Equal(t, "br0", prober.calls[0].Interface)
}

func TestCapabilities(t *testing.T) {
	svc := NewWithServices(testLogger(), &mockBroadcaster{}, &mockProber{}, fullCaps)
	assert.Equal(t, fullCaps, svc.Capabilities())
}
