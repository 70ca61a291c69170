package service

import (
	"context"
	"sync"
	"time"

	"github.com/emryou/solar-log-hub/internal/domain"
	"github.com/emryou/solar-log-hub/internal/repository"
)

// In-memory repository fakes for service tests.

type fakeDevicesRepo struct {
	mu      sync.Mutex
	byName  map[string]*domain.Device
	created []string
}

func newFakeDevicesRepo() *fakeDevicesRepo {
	return &fakeDevicesRepo{byName: make(map[string]*domain.Device)}
}

var _ repository.DevicesRepo = (*fakeDevicesRepo)(nil)

func (f *fakeDevicesRepo) CreateDevice(ctx context.Context, dev *domain.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[dev.DeviceName]; ok {
		return &domain.ConflictError{Resource: "device", Key: dev.DeviceName}
	}
	cp := *dev
	f.byName[dev.DeviceName] = &cp
	f.created = append(f.created, dev.DeviceName)
	return nil
}

func (f *fakeDevicesRepo) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.byName {
		if d.DeviceID == deviceID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "device", Key: deviceID}
}

func (f *fakeDevicesRepo) GetDeviceByName(ctx context.Context, name string) (*domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.byName[name]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, &domain.NotFoundError{Resource: "device", Key: name}
}

func (f *fakeDevicesRepo) ListDevices(ctx context.Context, orgID string) ([]*domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Device
	for _, d := range f.byName {
		if orgID == "" || d.OrgID == orgID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeDevicesRepo) DeleteDevice(ctx context.Context, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, d := range f.byName {
		if d.DeviceID == deviceID {
			delete(f.byName, name)
			return nil
		}
	}
	return &domain.NotFoundError{Resource: "device", Key: deviceID}
}

type sensorEntry struct {
	sensor *domain.Sensor
	config *domain.DecodingConfig
}

type fakeSensorsRepo struct {
	mu   sync.Mutex
	byID map[string]*sensorEntry
}

func newFakeSensorsRepo() *fakeSensorsRepo {
	return &fakeSensorsRepo{byID: make(map[string]*sensorEntry)}
}

var _ repository.SensorsRepo = (*fakeSensorsRepo)(nil)

func (f *fakeSensorsRepo) CreateSensor(ctx context.Context, s *domain.Sensor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if e.sensor.DeviceID == s.DeviceID && e.sensor.SensorName == s.SensorName {
			return &domain.ConflictError{Resource: "sensor", Key: s.DeviceID + "/" + s.SensorName}
		}
	}
	cp := *s
	f.byID[s.SensorID] = &sensorEntry{sensor: &cp}
	return nil
}

func (f *fakeSensorsRepo) GetSensor(ctx context.Context, sensorID string) (*domain.Sensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byID[sensorID]; ok {
		cp := *e.sensor
		return &cp, nil
	}
	return nil, &domain.NotFoundError{Resource: "sensor", Key: sensorID}
}

func (f *fakeSensorsRepo) ResolveSensor(ctx context.Context, deviceID, sensorName string) (*domain.Sensor, *domain.DecodingConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if e.sensor.DeviceID == deviceID && e.sensor.SensorName == sensorName {
			s := *e.sensor
			if e.config != nil {
				c := *e.config
				return &s, &c, nil
			}
			return &s, nil, nil
		}
	}
	return nil, nil, &domain.NotFoundError{Resource: "sensor", Key: deviceID + "/" + sensorName}
}

func (f *fakeSensorsRepo) ListSensors(ctx context.Context, deviceID string) ([]*domain.Sensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Sensor
	for _, e := range f.byID {
		if e.sensor.DeviceID == deviceID {
			cp := *e.sensor
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSensorsRepo) UpdateSensor(ctx context.Context, s *domain.Sensor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byID[s.SensorID]; ok {
		cp := *s
		e.sensor = &cp
		return nil
	}
	return &domain.NotFoundError{Resource: "sensor", Key: s.SensorID}
}

func (f *fakeSensorsRepo) DeleteSensor(ctx context.Context, sensorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[sensorID]; !ok {
		return &domain.NotFoundError{Resource: "sensor", Key: sensorID}
	}
	delete(f.byID, sensorID)
	return nil
}

func (f *fakeSensorsRepo) UpsertDecodingConfig(ctx context.Context, c *domain.DecodingConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byID[c.SensorID]; ok {
		cp := *c
		e.config = &cp
		return nil
	}
	return &domain.NotFoundError{Resource: "sensor", Key: c.SensorID}
}

func (f *fakeSensorsRepo) GetDecodingConfig(ctx context.Context, sensorID string) (*domain.DecodingConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byID[sensorID]; ok && e.config != nil {
		cp := *e.config
		return &cp, nil
	}
	return nil, &domain.NotFoundError{Resource: "decoding config", Key: sensorID}
}

func (f *fakeSensorsRepo) DeleteDecodingConfig(ctx context.Context, sensorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byID[sensorID]; ok && e.config != nil {
		e.config = nil
		return nil
	}
	return &domain.NotFoundError{Resource: "decoding config", Key: sensorID}
}

type insertedBatch struct {
	deviceID string
	rows     []repository.NewSample
	ts       time.Time
}

type fakeSamplesRepo struct {
	mu      sync.Mutex
	nextID  int64
	batches []insertedBatch

	// sensors treated as deleted mid-batch: their rows get id 0
	vanishedSensorIDs map[string]bool

	// recorded query arguments and canned results
	lastRangeTenant string
	lastRangeFilter domain.SampleFilter
	rangeResult     []*domain.Sample
	latestTenant    string
	latestResult    []*domain.Sample
}

func newFakeSamplesRepo() *fakeSamplesRepo { return &fakeSamplesRepo{} }

var _ repository.SamplesRepo = (*fakeSamplesRepo)(nil)

func (f *fakeSamplesRepo) InsertBatch(ctx context.Context, deviceID string, rows []repository.NewSample, ts time.Time) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, insertedBatch{deviceID: deviceID, rows: rows, ts: ts})
	ids := make([]int64, len(rows))
	for i := range rows {
		if f.vanishedSensorIDs[rows[i].SensorID] {
			continue
		}
		f.nextID++
		ids[i] = f.nextID
	}
	return ids, nil
}

func (f *fakeSamplesRepo) Range(ctx context.Context, tenantID string, filter domain.SampleFilter) ([]*domain.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRangeTenant = tenantID
	f.lastRangeFilter = filter
	return f.rangeResult, nil
}

func (f *fakeSamplesRepo) LatestByDevice(ctx context.Context, tenantID, deviceID string) ([]*domain.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestTenant = tenantID
	return f.latestResult, nil
}

func (f *fakeSamplesRepo) Statistics(ctx context.Context, tenantID string, filter domain.SampleFilter) ([]*domain.SensorStats, error) {
	return nil, nil
}

func (f *fakeSamplesRepo) totalRows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b.rows)
	}
	return n
}
