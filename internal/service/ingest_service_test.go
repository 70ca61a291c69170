package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/bus"
	"github.com/emryou/solar-log-hub/internal/decoder"
	"github.com/emryou/solar-log-hub/internal/domain"
)

type ingestFixture struct {
	devices *fakeDevicesRepo
	sensors *fakeSensorsRepo
	samples *fakeSamplesRepo
	bus     *bus.Bus
	svc     *IngestService
}

func newIngestFixture(t *testing.T, autoRegister bool, defaultOrgID string) *ingestFixture {
	t.Helper()
	f := &ingestFixture{
		devices: newFakeDevicesRepo(),
		sensors: newFakeSensorsRepo(),
		samples: newFakeSamplesRepo(),
		bus:     bus.New(zap.NewNop()),
	}
	f.svc = NewIngestService(f.devices, f.sensors, f.samples, f.bus, nil, nil,
		autoRegister, defaultOrgID, zap.NewNop())
	return f
}

func (f *ingestFixture) seedDevice(t *testing.T, orgID, deviceID, name string) {
	t.Helper()
	err := f.devices.CreateDevice(context.Background(), &domain.Device{
		DeviceID:   deviceID,
		OrgID:      orgID,
		DeviceName: name,
		Active:     true,
	})
	require.NoError(t, err)
}

func (f *ingestFixture) seedSensor(t *testing.T, deviceID, sensorID, name string, active bool) {
	t.Helper()
	err := f.sensors.CreateSensor(context.Background(), &domain.Sensor{
		SensorID:   sensorID,
		DeviceID:   deviceID,
		SensorName: name,
		SensorType: "radiation",
		Unit:       "W/m2",
		Active:     active,
	})
	require.NoError(t, err)
}

func TestSubmitPartialBatch(t *testing.T) {
	f := newIngestFixture(t, false, "")
	f.seedDevice(t, "org-1", "dev-1", "gateway-01")
	f.seedSensor(t, "dev-1", "sen-1", "radiation", true)

	n, err := f.svc.Submit(context.Background(), "gateway-01", []Reading{
		{SensorName: "radiation", Value: 812.5},
		{SensorName: "no-such-sensor", Value: 1.0},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.samples.totalRows())
}

func TestSubmitDuplicateBatchNotIdempotent(t *testing.T) {
	f := newIngestFixture(t, false, "")
	f.seedDevice(t, "org-1", "dev-1", "gateway-01")
	f.seedSensor(t, "dev-1", "sen-1", "radiation", true)

	batch := []Reading{{SensorName: "radiation", Value: 812.5}}
	for i := 0; i < 2; i++ {
		n, err := f.svc.Submit(context.Background(), "gateway-01", batch)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, 2, f.samples.totalRows())
}

func TestSubmitUnknownDeviceRejectedWithoutAutoRegister(t *testing.T) {
	f := newIngestFixture(t, false, "")

	_, err := f.svc.Submit(context.Background(), "never-seen", []Reading{
		{SensorName: "radiation", Value: 1.0},
	})

	assert.True(t, domain.IsNotFound(err))
	assert.Empty(t, f.devices.created)
}

func TestSubmitAutoRegistersUnknownDevice(t *testing.T) {
	f := newIngestFixture(t, true, "org-default")

	n, err := f.svc.Submit(context.Background(), "fresh-gateway", []Reading{
		{SensorName: "radiation", Value: 1.0},
	})

	// Device gets created but the reading still drops: no sensor catalog yet.
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	dev, err := f.devices.GetDeviceByName(context.Background(), "fresh-gateway")
	require.NoError(t, err)
	assert.Equal(t, "org-default", dev.OrgID)
	assert.True(t, dev.Active)
}

func TestSubmitAutoRegisterWithoutDefaultOrg(t *testing.T) {
	f := newIngestFixture(t, true, "")

	_, err := f.svc.Submit(context.Background(), "fresh-gateway", []Reading{
		{SensorName: "radiation", Value: 1.0},
	})

	assert.True(t, domain.IsConfiguration(err))
}

func TestSubmitRawReadingDecoded(t *testing.T) {
	f := newIngestFixture(t, false, "")
	f.seedDevice(t, "org-1", "dev-1", "gateway-01")
	f.seedSensor(t, "dev-1", "sen-1", "temperature1", true)
	require.NoError(t, f.sensors.UpsertDecodingConfig(context.Background(), &domain.DecodingConfig{
		SensorID: "sen-1",
		Encoding: decoder.EncodingSigned16,
		Scale:    0.1,
		Offset:   0,
	}))

	n, err := f.svc.Submit(context.Background(), "gateway-01", []Reading{
		{SensorName: "temperature1", Value: 452, Raw: true},
	})

	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, f.samples.batches, 1)
	assert.InDelta(t, 45.2, f.samples.batches[0].rows[0].Value, 1e-9)
}

func TestSubmitRawReadingOutOfRangeDropped(t *testing.T) {
	f := newIngestFixture(t, false, "")
	f.seedDevice(t, "org-1", "dev-1", "gateway-01")
	f.seedSensor(t, "dev-1", "sen-1", "temperature1", true)
	require.NoError(t, f.sensors.UpsertDecodingConfig(context.Background(), &domain.DecodingConfig{
		SensorID: "sen-1",
		Encoding: decoder.EncodingSigned16,
		Scale:    0.1,
		Offset:   0,
	}))

	// None of these carry a valid 16-bit register bit pattern.
	for _, v := range []float64{-1, 65536, 45.2, math.NaN(), math.Inf(1)} {
		n, err := f.svc.Submit(context.Background(), "gateway-01", []Reading{
			{SensorName: "temperature1", Value: v, Raw: true},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, n, "value %v must be dropped", v)
	}
	assert.Equal(t, 0, f.samples.totalRows())
}

func TestSubmitSensorDeletedMidBatch(t *testing.T) {
	f := newIngestFixture(t, false, "")
	f.seedDevice(t, "org-1", "dev-1", "gateway-01")
	f.seedSensor(t, "dev-1", "sen-1", "radiation", true)
	f.seedSensor(t, "dev-1", "sen-2", "temperature1", true)
	f.samples.vanishedSensorIDs = map[string]bool{"sen-2": true}

	sub := f.bus.Subscribe("org-1")
	defer f.bus.Unsubscribe(sub)

	n, err := f.svc.Submit(context.Background(), "gateway-01", []Reading{
		{SensorName: "radiation", Value: 812.5},
		{SensorName: "temperature1", Value: 45.2},
	})

	// The surviving row goes through; the vanished one drops quietly.
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	select {
	case ev := <-sub.C:
		sp, ok := ev.Payload.(*domain.Sample)
		require.True(t, ok)
		assert.Equal(t, "radiation", sp.SensorName)
		assert.NotZero(t, sp.ID)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected second event: %+v", ev)
	default:
	}
}

func TestSubmitRawReadingWithoutConfigDropped(t *testing.T) {
	f := newIngestFixture(t, false, "")
	f.seedDevice(t, "org-1", "dev-1", "gateway-01")
	f.seedSensor(t, "dev-1", "sen-1", "radiation", true)

	n, err := f.svc.Submit(context.Background(), "gateway-01", []Reading{
		{SensorName: "radiation", Value: 452, Raw: true},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSubmitInactiveSensorDropped(t *testing.T) {
	f := newIngestFixture(t, false, "")
	f.seedDevice(t, "org-1", "dev-1", "gateway-01")
	f.seedSensor(t, "dev-1", "sen-1", "radiation", false)

	n, err := f.svc.Submit(context.Background(), "gateway-01", []Reading{
		{SensorName: "radiation", Value: 1.0},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	// Still one batch write so the device last_seen advances.
	assert.Len(t, f.samples.batches, 1)
	assert.Empty(t, f.samples.batches[0].rows)
}

func TestSubmitValidation(t *testing.T) {
	f := newIngestFixture(t, false, "")

	_, err := f.svc.Submit(context.Background(), "", []Reading{{SensorName: "radiation"}})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.Submit(context.Background(), "gateway-01", nil)
	assert.True(t, domain.IsValidation(err))
}

func TestSubmitPublishesTenantTaggedEvents(t *testing.T) {
	f := newIngestFixture(t, false, "")
	f.seedDevice(t, "org-1", "dev-1", "gateway-01")
	f.seedSensor(t, "dev-1", "sen-1", "radiation", true)

	sub := f.bus.Subscribe("org-1")
	defer f.bus.Unsubscribe(sub)

	n, err := f.svc.Submit(context.Background(), "gateway-01", []Reading{
		{SensorName: "radiation", Value: 812.5},
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	select {
	case ev := <-sub.C:
		assert.Equal(t, domain.EventSampleIngested, ev.Type)
		assert.Equal(t, "org-1", ev.OrgID)
		sp, ok := ev.Payload.(*domain.Sample)
		require.True(t, ok)
		assert.Equal(t, "radiation", sp.SensorName)
		assert.InDelta(t, 812.5, sp.Value, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestSubmitSimple(t *testing.T) {
	f := newIngestFixture(t, false, "")
	f.seedDevice(t, "org-1", "dev-1", "gateway-01")
	f.seedSensor(t, "dev-1", "sen-1", SensorNameRadiation, true)
	f.seedSensor(t, "dev-1", "sen-2", SensorNameTemperature1, true)
	f.seedSensor(t, "dev-1", "sen-3", SensorNameTemperature2, true)

	n, err := f.svc.SubmitSimple(context.Background(), "gateway-01", 812.5, 45.2, 44.0)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, f.samples.totalRows())
}
