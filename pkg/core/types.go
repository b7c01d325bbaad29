// Package core provides the main FarmSight client, configuration, and
// shared domain types.
package core

import "time"

// TaskStatus is the workflow state of a farm task.
type TaskStatus string

const (
	// TaskTodo means the task has been created but not started.
	TaskTodo TaskStatus = "todo"

	// TaskInProgress means work on the task has begun.
	TaskInProgress TaskStatus = "in_progress"

	// TaskDone means the task has been completed.
	TaskDone TaskStatus = "done"

	// TaskCancelled means the task was abandoned.
	TaskCancelled TaskStatus = "cancelled"
)

// AlertSeverity classifies how urgent an alert is.
type AlertSeverity string

const (
	// SeverityInfo is an informational alert.
	SeverityInfo AlertSeverity = "info"

	// SeverityWarning requires attention but not immediate action.
	SeverityWarning AlertSeverity = "warning"

	// SeverityCritical requires immediate action.
	SeverityCritical AlertSeverity = "critical"
)

// EquipmentStatus is the operational state of a piece of equipment.
type EquipmentStatus string

const (
	// EquipmentActive means the equipment is in use.
	EquipmentActive EquipmentStatus = "active"

	// EquipmentIdle means the equipment is available but not in use.
	EquipmentIdle EquipmentStatus = "idle"

	// EquipmentMaintenance means the equipment is under maintenance.
	EquipmentMaintenance EquipmentStatus = "maintenance"
)

// Field represents a cultivated field on the farm.
type Field struct {
	// ID is the unique identifier of the field.
	ID string `json:"id"`

	// Name is the display name of the field.
	Name string `json:"name"`

	// AreaHectares is the field area in hectares.
	AreaHectares float64 `json:"area_hectares"`

	// Crop is the crop currently planted (empty if fallow).
	Crop string `json:"crop,omitempty"`

	// Boundary is the GeoJSON boundary of the field (optional).
	Boundary map[string]interface{} `json:"boundary,omitempty"`

	// SoilMoisture is the latest soil moisture reading (0.0-1.0).
	SoilMoisture float64 `json:"soil_moisture,omitempty"`

	// UpdatedAt is when the field record was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Task represents a unit of farm work tracked on the task board.
type Task struct {
	// ID is the unique identifier of the task.
	ID string `json:"id"`

	// Title is a short description of the work.
	Title string `json:"title"`

	// Description is the detailed description (optional).
	Description string `json:"description,omitempty"`

	// FieldID is the field the task applies to (optional).
	FieldID string `json:"field_id,omitempty"`

	// AssigneeID is the user the task is assigned to (optional).
	AssigneeID string `json:"assignee_id,omitempty"`

	// Status is the current workflow state.
	Status TaskStatus `json:"status"`

	// DueAt is the task deadline (optional).
	DueAt *time.Time `json:"due_at,omitempty"`

	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
}

// Equipment represents a tracked machine or implement.
type Equipment struct {
	// ID is the unique identifier of the equipment.
	ID string `json:"id"`

	// Name is the display name (e.g., "John Deere 8R").
	Name string `json:"name"`

	// Kind is the equipment category (tractor, harvester, drone, ...).
	Kind string `json:"kind"`

	// Status is the current operational state.
	Status EquipmentStatus `json:"status"`

	// Latitude and Longitude are the last known position.
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`

	// EngineHours is the cumulative engine-hour counter.
	EngineHours float64 `json:"engine_hours,omitempty"`
}

// SensorReading is a single measurement from an IoT sensor.
type SensorReading struct {
	// SensorID identifies the sensor that produced the reading.
	SensorID string `json:"sensor_id"`

	// FieldID is the field the sensor is installed in (optional).
	FieldID string `json:"field_id,omitempty"`

	// Metric is the measured quantity (soil_moisture, temperature, ...).
	Metric string `json:"metric"`

	// Value is the measured value in the metric's native unit.
	Value float64 `json:"value"`

	// Unit is the unit of measure (optional).
	Unit string `json:"unit,omitempty"`

	// RecordedAt is when the measurement was taken.
	RecordedAt time.Time `json:"recorded_at"`
}

// Alert is a notification raised by the backend rule engine.
type Alert struct {
	// ID is the unique identifier of the alert.
	ID string `json:"id"`

	// Severity classifies the urgency of the alert.
	Severity AlertSeverity `json:"severity"`

	// Title is a short human-readable summary.
	Title string `json:"title"`

	// Message is the full alert text.
	Message string `json:"message"`

	// FieldID is the field the alert relates to (optional).
	FieldID string `json:"field_id,omitempty"`

	// Acknowledged indicates whether a user has acknowledged the alert.
	Acknowledged bool `json:"acknowledged"`

	// RaisedAt is when the alert was raised.
	RaisedAt time.Time `json:"raised_at"`
}

// Forecast is a single day of weather forecast for the farm location.
type Forecast struct {
	// Date is the forecast day.
	Date time.Time `json:"date"`

	// TempMinC and TempMaxC are the forecast temperature bounds in Celsius.
	TempMinC float64 `json:"temp_min_c"`
	TempMaxC float64 `json:"temp_max_c"`

	// PrecipitationMM is the expected precipitation in millimeters.
	PrecipitationMM float64 `json:"precipitation_mm"`

	// WindSpeedKPH is the expected wind speed in km/h.
	WindSpeedKPH float64 `json:"wind_speed_kph"`

	// Condition is a short condition label (clear, rain, ...).
	Condition string `json:"condition"`
}

// NDVISnapshot is one satellite vegetation-index capture for a field.
type NDVISnapshot struct {
	// ID is the unique identifier of the snapshot.
	ID string `json:"id"`

	// FieldID is the field the snapshot covers.
	FieldID string `json:"field_id"`

	// CapturedAt is when the imagery was captured.
	CapturedAt time.Time `json:"captured_at"`

	// MeanNDVI is the mean vegetation index over the field (-1.0 to 1.0).
	MeanNDVI float64 `json:"mean_ndvi"`

	// TileURL points at the rendered raster tile (optional).
	TileURL string `json:"tile_url,omitempty"`
}

// User is the authenticated dashboard user.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id"`

	// Email is the login email address.
	Email string `json:"email"`

	// Name is the display name.
	Name string `json:"name"`

	// TenantID is the farm organization the user belongs to.
	TenantID string `json:"tenant_id,omitempty"`
}

// LoginResult is the payload returned by a successful login.
type LoginResult struct {
	// AccessToken is the short-lived bearer token.
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived refresh credential (optional; it may
	// instead be delivered as an httpOnly cookie).
	RefreshToken string `json:"refresh_token,omitempty"`

	// User is the authenticated user.
	User User `json:"user"`
}
